package arbor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrackingReportsSuccessAndFailure(t *testing.T) {
	type call struct {
		name    string
		ok      bool
		elapsed time.Duration
	}
	var calls []call

	track := func(name string, elapsed time.Duration, ok bool) {
		calls = append(calls, call{name: name, ok: ok, elapsed: elapsed})
	}

	good := LiftTool(ToolDescriptor{Name: "good"}, func(_ context.Context, input string) (string, error) {
		return input, nil
	}).WithTracking(track)

	bad := LiftTool(ToolDescriptor{Name: "bad"}, func(_ context.Context, _ string) (string, error) {
		return "", errors.New("boom")
	}).WithTracking(track)

	ctx := context.Background()
	if out := good.Invoke(ctx, "x"); !out.Ok() {
		t.Fatalf("unexpected fault: %v", out.Fault())
	}
	if out := bad.Invoke(ctx, "x"); out.Ok() {
		t.Fatal("expected failure")
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 tracked calls, got %d", len(calls))
	}
	if calls[0].name != "good" || !calls[0].ok {
		t.Errorf("expected successful call to 'good', got %+v", calls[0])
	}
	if calls[1].name != "bad" || calls[1].ok {
		t.Errorf("expected failed call to 'bad', got %+v", calls[1])
	}
}

func TestTrackingPassesOutcomeThrough(t *testing.T) {
	tool := LiftTool(ToolDescriptor{Name: "echo"}, func(_ context.Context, input string) (string, error) {
		return input, nil
	}).WithTracking(func(string, time.Duration, bool) {})

	out := tool.Invoke(context.Background(), "unchanged")
	if value := out.MustValue(); value != "unchanged" {
		t.Errorf("tracking must not alter results, got %q", value)
	}
}
