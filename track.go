package arbor

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// TrackFunc observes one finished invocation: the tool name, elapsed wall
// time, and whether it succeeded.
type TrackFunc func(name string, elapsed time.Duration, ok bool)

// WithTracking returns a tool that invokes the callback after every
// invocation, success or failure, without altering the returned outcome.
// Place this outermost so the elapsed time covers the whole decorator stack.
func (t *Tool) WithTracking(fn TrackFunc) *Tool {
	inner := t.invoke
	name := t.desc.Name

	return t.wrap(func(ctx context.Context, input string) Outcome[string] {
		start := time.Now()
		out := inner(ctx, input)
		elapsed := time.Since(start)

		if fn != nil {
			fn(name, elapsed, out.Ok())
		}
		var err error
		if f := out.Fault(); f != nil {
			err = f
		}
		capitan.Emit(ctx, ToolInvoked,
			FieldTool.Field(name),
			FieldToolElapsed.Field(elapsed),
			FieldError.Field(err),
		)
		return out
	})
}
