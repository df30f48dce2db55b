package arbor

import "context"

// Arrow is a composable unit of work: a function from an input to an
// Outcome-wrapped output. Arrows compose with Pipe, which short-circuits on
// the first failure; an identity arrow exists so composition has a unit.
type Arrow[In, Out any] func(ctx context.Context, in In) Outcome[Out]

// Run invokes the arrow, capturing panics into an internal fault so no
// failure escapes the step boundary unhandled. Callers that compose arrows
// through Pipe get the same protection on every segment.
func (a Arrow[In, Out]) Run(ctx context.Context, in In) (out Outcome[Out]) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure[Out](Faultf(KindInternal, "arrow", "panic: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return Failure[Out](FaultFrom("arrow", err))
	}
	return a(ctx, in)
}

// Ident is the identity arrow: composing with it is a no-op.
func Ident[A any]() Arrow[A, A] {
	return func(_ context.Context, a A) Outcome[A] {
		return Success(a)
	}
}

// Lift adapts an ordinary (value, error) function into an arrow. Errors are
// classified through FaultFrom with the given stage name.
func Lift[In, Out any](stage string, fn func(ctx context.Context, in In) (Out, error)) Arrow[In, Out] {
	return func(ctx context.Context, in In) Outcome[Out] {
		out, err := fn(ctx, in)
		if err != nil {
			return Failure[Out](FaultFrom(stage, err))
		}
		return Success(out)
	}
}

// Pure lifts a function that cannot fail into an arrow.
func Pure[In, Out any](fn func(In) Out) Arrow[In, Out] {
	return func(_ context.Context, in In) Outcome[Out] {
		return Success(fn(in))
	}
}

// Pipe composes two arrows into one. The second arrow never runs when the
// first fails; the original fault propagates untouched. Pipe is associative:
// Pipe(Pipe(a, b), c) behaves identically to Pipe(a, Pipe(b, c)).
func Pipe[A, B, C any](first Arrow[A, B], second Arrow[B, C]) Arrow[A, C] {
	return func(ctx context.Context, a A) Outcome[C] {
		return Bind(first.Run(ctx, a), func(b B) Outcome[C] {
			return second.Run(ctx, b)
		})
	}
}

// MapArrow post-processes an arrow's success value with a pure function.
func MapArrow[A, B, C any](a Arrow[A, B], f func(B) C) Arrow[A, C] {
	return func(ctx context.Context, in A) Outcome[C] {
		return Map(a.Run(ctx, in), f)
	}
}
