package arbor

import (
	"context"
	"time"
)

// WithTimeout returns a tool that races the inner invocation against a
// deadline. On expiry the wrapper returns a timeout fault and the inner
// call's context is cancelled, so a well-behaved tool unwinds rather than
// leaking past the deadline. Place this innermost so each retry attempt gets
// its own deadline budget.
func (t *Tool) WithTimeout(d time.Duration) *Tool {
	inner := t.invoke
	name := t.desc.Name

	return t.wrap(func(ctx context.Context, input string) Outcome[string] {
		start := time.Now()
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan Outcome[string], 1)
		go func() {
			done <- inner(tctx, input)
		}()

		select {
		case out := <-done:
			return out
		case <-tctx.Done():
			// Distinguish the caller abandoning the call from the
			// deadline firing.
			if ctx.Err() != nil {
				return Failure[string](NewFault(KindCanceled, name, ctx.Err()).WithElapsed(time.Since(start)))
			}
			return Failure[string](NewFault(KindTimeout, name, tctx.Err()).WithElapsed(time.Since(start)))
		}
	})
}
