package arbor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheHitSkipsInnerInvoker(t *testing.T) {
	var calls atomic.Int64
	tool := LiftTool(ToolDescriptor{Name: "lookup"}, func(_ context.Context, input string) (string, error) {
		calls.Add(1)
		return "result for " + input, nil
	}).WithCache(time.Minute)

	ctx := context.Background()

	first := tool.Invoke(ctx, "query")
	second := tool.Invoke(ctx, "query")

	if first.MustValue() != second.MustValue() {
		t.Error("cached result must match original")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 inner call, got %d", got)
	}
}

func TestCacheMissOnDifferentInput(t *testing.T) {
	var calls atomic.Int64
	tool := LiftTool(ToolDescriptor{Name: "lookup"}, func(_ context.Context, input string) (string, error) {
		calls.Add(1)
		return input, nil
	}).WithCache(time.Minute)

	ctx := context.Background()
	tool.Invoke(ctx, "a")
	tool.Invoke(ctx, "b")

	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 inner calls, got %d", got)
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	var calls atomic.Int64
	tool := LiftTool(ToolDescriptor{Name: "flaky"}, func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", errors.New("backend down")
	}).WithCache(time.Minute)

	ctx := context.Background()
	tool.Invoke(ctx, "query")
	out := tool.Invoke(ctx, "query")

	if out.Ok() {
		t.Fatal("expected failure")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("failures must not be cached; expected 2 calls, got %d", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	var calls atomic.Int64
	tool := LiftTool(ToolDescriptor{Name: "lookup"}, func(_ context.Context, input string) (string, error) {
		calls.Add(1)
		return input, nil
	}).WithCache(10 * time.Millisecond)

	ctx := context.Background()
	tool.Invoke(ctx, "query")
	time.Sleep(25 * time.Millisecond)
	tool.Invoke(ctx, "query")

	if got := calls.Load(); got != 2 {
		t.Errorf("expected re-invocation after TTL, got %d calls", got)
	}
}
