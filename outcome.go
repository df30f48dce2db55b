package arbor

// Outcome is the two-variant result type every fallible operation in arbor
// returns: either a success value or a typed *Fault. Exactly one variant is
// populated; Match is the sanctioned way to eliminate it.
//
// Go methods cannot introduce fresh type parameters, so the transforming
// combinators Map and Bind live at package level.
type Outcome[T any] struct {
	value T
	fault *Fault
}

// Success creates a successful outcome.
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{value: value}
}

// Failure creates a failed outcome. A nil fault is promoted to an internal
// fault so the failure variant is never silently empty.
func Failure[T any](fault *Fault) Outcome[T] {
	if fault == nil {
		fault = Faultf(KindInternal, "outcome", "failure constructed with nil fault")
	}
	return Outcome[T]{fault: fault}
}

// Ok reports whether the outcome holds a success value.
func (o Outcome[T]) Ok() bool {
	return o.fault == nil
}

// Fault returns the fault, or nil on success.
func (o Outcome[T]) Fault() *Fault {
	return o.fault
}

// Get returns the value and the fault; exactly one is meaningful.
func (o Outcome[T]) Get() (T, *Fault) {
	return o.value, o.fault
}

// MustValue returns the success value and panics on failure. Accessing the
// wrong variant is a programming error, not a runtime branch.
func (o Outcome[T]) MustValue() T {
	if o.fault != nil {
		panic("arbor: MustValue on failed outcome: " + o.fault.Error())
	}
	return o.value
}

// Match eliminates the outcome totally: exactly one handler runs.
func (o Outcome[T]) Match(onSuccess func(T), onFailure func(*Fault)) {
	if o.fault != nil {
		if onFailure != nil {
			onFailure(o.fault)
		}
		return
	}
	if onSuccess != nil {
		onSuccess(o.value)
	}
}

// Map transforms the success value and passes failure through unchanged.
func Map[T, U any](o Outcome[T], f func(T) U) Outcome[U] {
	if o.fault != nil {
		return Failure[U](o.fault)
	}
	return Success(f(o.value))
}

// Bind chains a dependent computation: on success f runs and its outcome is
// returned; on failure the original fault propagates and f never executes.
func Bind[T, U any](o Outcome[T], f func(T) Outcome[U]) Outcome[U] {
	if o.fault != nil {
		return Failure[U](o.fault)
	}
	return f(o.value)
}

// Option is an optional value: Some(v) or None.
type Option[T any] struct {
	value T
	some  bool
}

// Some creates a populated option.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, some: true}
}

// None creates an empty option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsSome reports whether the option holds a value.
func (p Option[T]) IsSome() bool {
	return p.some
}

// Value returns the contained value and whether it is present.
func (p Option[T]) Value() (T, bool) {
	return p.value, p.some
}

// OrElse returns the contained value or the given default.
func (p Option[T]) OrElse(def T) T {
	if p.some {
		return p.value
	}
	return def
}
