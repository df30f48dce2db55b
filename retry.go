package arbor

import (
	"context"
	"math/rand"
	"time"

	"github.com/zoobzio/capitan"
)

// WithRetry returns a tool that re-invokes on retryable failure up to
// maxAttempts total attempts, sleeping base*2^attempt with jitter between
// attempts. Cancellation by the caller stops the loop immediately, and
// non-retryable faults (validation, circuit-open, cancellation) propagate
// untouched. Exhausting the budget returns a retry-exhausted fault that
// wraps the last failure and carries the attempt count.
func (t *Tool) WithRetry(maxAttempts int, base time.Duration) *Tool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	inner := t.invoke
	name := t.desc.Name

	return t.wrap(func(ctx context.Context, input string) Outcome[string] {
		start := time.Now()
		var last *Fault

		for attempt := 0; attempt < maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return Failure[string](NewFault(KindCanceled, name, err).WithAttempts(attempt))
			}

			out := inner(ctx, input)
			if out.Ok() {
				return out
			}

			last = out.Fault()
			if !last.Retryable() {
				return Failure[string](last.WithAttempts(attempt + 1))
			}
			if attempt == maxAttempts-1 {
				break
			}

			capitan.Emit(ctx, ToolRetry,
				FieldTool.Field(name),
				FieldAttempt.Field(attempt+1),
				FieldError.Field(last),
			)

			if !sleepBackoff(ctx, base, attempt) {
				return Failure[string](NewFault(KindCanceled, name, ctx.Err()).WithAttempts(attempt + 1))
			}
		}

		exhausted := NewFault(KindRetryExhausted, name, last)
		exhausted.Attempts = maxAttempts
		exhausted.Elapsed = time.Since(start)
		return Failure[string](exhausted)
	})
}

// sleepBackoff waits base*2^attempt plus up to 10% jitter, returning false
// if the context is cancelled before the delay elapses.
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) bool {
	delay := base << uint(attempt)
	if delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
		delay += jitter
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
