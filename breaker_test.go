package arbor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	var calls atomic.Int64
	tool := LiftTool(ToolDescriptor{Name: "shaky"}, func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", errors.New("backend down")
	}).WithCircuitBreaker(3, time.Minute)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tool.Invoke(ctx, "x")
	}

	out := tool.Invoke(ctx, "x")
	if out.Ok() {
		t.Fatal("expected failure")
	}
	if out.Fault().Kind != KindCircuitOpen {
		t.Errorf("expected circuit-open kind, got %s", out.Fault().Kind)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("open breaker must reject without invoking; got %d calls", got)
	}
}

func TestBreakerProbesAfterCooldownAndCloses(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var calls atomic.Int64

	tool := LiftTool(ToolDescriptor{Name: "shaky"}, func(_ context.Context, input string) (string, error) {
		calls.Add(1)
		if fail.Load() {
			return "", errors.New("backend down")
		}
		return input, nil
	}).WithCircuitBreaker(2, 20*time.Millisecond)

	ctx := context.Background()
	tool.Invoke(ctx, "x")
	tool.Invoke(ctx, "x")

	// Open: rejected without touching the backend.
	if out := tool.Invoke(ctx, "x"); out.Fault() == nil || out.Fault().Kind != KindCircuitOpen {
		t.Fatal("expected open circuit")
	}

	fail.Store(false)
	time.Sleep(30 * time.Millisecond)

	// First call after cooldown is the probe; success closes the breaker.
	out := tool.Invoke(ctx, "probe")
	if !out.Ok() {
		t.Fatalf("probe should succeed: %v", out.Fault())
	}

	out = tool.Invoke(ctx, "steady")
	if !out.Ok() {
		t.Fatalf("breaker should be closed: %v", out.Fault())
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 backend calls (2 failures, probe, steady), got %d", got)
	}
}

func TestBreakerHalfOpenRejectsConcurrentCaller(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64

	tool := LiftTool(ToolDescriptor{Name: "shaky"}, func(_ context.Context, input string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("backend down")
		}
		close(entered)
		<-release
		return input, nil
	}).WithCircuitBreaker(1, 10*time.Millisecond)

	ctx := context.Background()
	tool.Invoke(ctx, "x")

	time.Sleep(20 * time.Millisecond)

	// The probe blocks inside the backend while a second caller arrives.
	done := make(chan Outcome[string], 1)
	go func() { done <- tool.Invoke(ctx, "probe") }()
	<-entered

	out := tool.Invoke(ctx, "x")
	if out.Ok() || out.Fault().Kind != KindCircuitOpen {
		t.Fatal("expected circuit-open rejection while probe is in flight")
	}
	if !strings.Contains(out.Fault().Error(), "probe") {
		t.Errorf("rejection must report the in-flight probe, got %q", out.Fault().Error())
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("second caller must not reach the backend; got %d calls", got)
	}

	close(release)
	if out := <-done; !out.Ok() {
		t.Fatalf("probe should succeed: %v", out.Fault())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	var calls atomic.Int64
	tool := LiftTool(ToolDescriptor{Name: "shaky"}, func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", errors.New("backend down")
	}).WithCircuitBreaker(2, 10*time.Millisecond)

	ctx := context.Background()
	tool.Invoke(ctx, "x")
	tool.Invoke(ctx, "x")

	time.Sleep(20 * time.Millisecond)

	// Probe fails, breaker re-opens.
	tool.Invoke(ctx, "probe")

	out := tool.Invoke(ctx, "x")
	if out.Ok() || out.Fault().Kind != KindCircuitOpen {
		t.Fatal("expected re-opened circuit after failed probe")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 backend calls, got %d", got)
	}
}
