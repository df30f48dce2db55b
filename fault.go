package arbor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FaultKind classifies a failure so callers can decide whether to retry,
// fall back, or abort the branch.
type FaultKind string

const (
	// KindValidation marks malformed input to a step or tool.
	KindValidation FaultKind = "validation"

	// KindTimeout marks an invocation abandoned at its deadline.
	KindTimeout FaultKind = "timeout"

	// KindCanceled marks an invocation aborted by the caller's context.
	KindCanceled FaultKind = "canceled"

	// KindTransient marks a retryable provider or tool failure.
	KindTransient FaultKind = "transient"

	// KindCircuitOpen marks a fail-fast rejection by an open circuit breaker.
	KindCircuitOpen FaultKind = "circuit-open"

	// KindRouting marks a routing failure: no capable model found.
	KindRouting FaultKind = "routing"

	// KindRetryExhausted marks a terminal failure after the retry budget.
	KindRetryExhausted FaultKind = "retry-exhausted"

	// KindInternal marks a recovered panic or other programming fault
	// captured at a step boundary.
	KindInternal FaultKind = "internal"
)

// Fault is the typed error carried by every Failure outcome.
// Stage names the decorator or step that produced it; Attempts and Elapsed
// give callers enough context to retry at a higher level or abort.
type Fault struct {
	Kind     FaultKind
	Stage    string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// NewFault creates a fault of the given kind produced by the given stage.
func NewFault(kind FaultKind, stage string, err error) *Fault {
	return &Fault{Kind: kind, Stage: stage, Err: err}
}

// Faultf creates a fault with a formatted cause.
func Faultf(kind FaultKind, stage, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Error implements error.
func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Kind, f.Err)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Retryable reports whether the resilience layer may retry this fault
// locally. Circuit-open, cancellation, and validation faults propagate
// untouched.
func (f *Fault) Retryable() bool {
	switch f.Kind {
	case KindTransient, KindTimeout:
		return true
	default:
		return false
	}
}

// WithAttempts returns a copy annotated with the attempt count.
func (f *Fault) WithAttempts(n int) *Fault {
	clone := *f
	clone.Attempts = n
	return &clone
}

// WithElapsed returns a copy annotated with elapsed time.
func (f *Fault) WithElapsed(d time.Duration) *Fault {
	clone := *f
	clone.Elapsed = d
	return &clone
}

// FaultFrom converts an arbitrary error into a fault. Context errors map to
// the timeout and cancellation kinds; an existing fault passes through;
// anything else is treated as transient so the resilience layer may retry it.
func FaultFrom(stage string, err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewFault(KindTimeout, stage, err)
	case errors.Is(err, context.Canceled):
		return NewFault(KindCanceled, stage, err)
	default:
		return NewFault(KindTransient, stage, err)
	}
}
