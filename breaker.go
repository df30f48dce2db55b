package arbor

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// breakerState is the circuit position for one WithCircuitBreaker wrapper.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker tracks consecutive failures for a single wrapper instance.
// Multiple callers may invoke the wrapped tool simultaneously, so all state
// transitions happen under the mutex.
type breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	probing   bool
}

// WithCircuitBreaker returns a tool that fails fast after threshold
// consecutive failures. While open, calls return a circuit-open fault
// without invoking the inner tool; after the cooldown the breaker moves to
// half-open and admits exactly one probe, whose result decides whether the
// circuit closes or re-opens.
func (t *Tool) WithCircuitBreaker(threshold int, cooldown time.Duration) *Tool {
	if threshold < 1 {
		threshold = 1
	}
	inner := t.invoke
	name := t.desc.Name
	b := &breaker{threshold: threshold, cooldown: cooldown}

	return t.wrap(func(ctx context.Context, input string) Outcome[string] {
		probe, admitted, probeInFlight := b.admit()
		if !admitted {
			if probeInFlight {
				return Failure[string](Faultf(KindCircuitOpen, name,
					"circuit half-open, probe already in flight"))
			}
			return Failure[string](Faultf(KindCircuitOpen, name,
				"circuit open after %d consecutive failures", b.threshold))
		}
		if probe {
			capitan.Emit(ctx, BreakerProbe, FieldTool.Field(name))
		}

		out := inner(ctx, input)
		if opened, closed := b.record(out.Ok(), probe); opened {
			capitan.Emit(ctx, BreakerOpened, FieldTool.Field(name))
		} else if closed {
			capitan.Emit(ctx, BreakerClosed, FieldTool.Field(name))
		}
		return out
	})
}

// admit decides whether a call may proceed. admitted is false when the
// circuit rejects the call; probe marks the call as the half-open probe, and
// probeInFlight marks a rejection caused by another caller's pending probe
// rather than the cooldown window.
func (b *breaker) admit() (probe, admitted, probeInFlight bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return false, true, false
	case breakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false, false, false
		}
		b.state = breakerHalfOpen
		b.probing = true
		return true, true, false
	default: // half-open
		if b.probing {
			return false, false, true
		}
		b.probing = true
		return true, true, false
	}
}

// record folds an invocation result into the breaker state and reports
// open/close transitions for signal emission.
func (b *breaker) record(ok, probe bool) (opened, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
		if ok {
			b.state = breakerClosed
			b.failures = 0
			return false, true
		}
		b.state = breakerOpen
		b.openedAt = time.Now()
		return true, false
	}

	if ok {
		b.failures = 0
		return false, false
	}

	b.failures++
	if b.state == breakerClosed && b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
		return true, false
	}
	return false, false
}
