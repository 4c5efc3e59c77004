package flow

// FromSlice creates a Flow that emits each element of items in order,
// then completes. The slice is not copied; callers must not mutate it
// while subscriptions run.
func FromSlice[T any](items []T) *Flow[T] {
	return &Flow[T]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[T]) {
			for _, v := range items {
				if !sub.active() {
					return
				}
				down.onNext(v)
			}
			if sub.active() {
				down.onComplete()
			}
		},
	}
}

// Just creates a Flow that emits the given values, then completes.
func Just[T any](values ...T) *Flow[T] {
	return FromSlice(values)
}

// Range creates a Flow emitting count integers starting at start.
func Range(start, count int) *Flow[int] {
	return &Flow[int]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[int]) {
			for i := 0; i < count; i++ {
				if !sub.active() {
					return
				}
				down.onNext(start + i)
			}
			if sub.active() {
				down.onComplete()
			}
		},
	}
}

// Empty creates a Flow that completes without emitting.
func Empty[T any]() *Flow[T] {
	return &Flow[T]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[T]) {
			if sub.active() {
				down.onComplete()
			}
		},
	}
}

// Fail creates a Flow that signals err without emitting.
func Fail[T any](err error) *Flow[T] {
	return &Flow[T]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[T]) {
			if sub.active() {
				down.onError(err)
			}
		},
	}
}

// Emitter is handed to a FromFunc generator to push signals downstream.
// Next reports false once the run is over so generators can stop early.
type Emitter[T any] struct {
	sub  *Subscription
	down consumer[T]
	done bool
}

// Next emits one value. Returns false when the subscription is no longer
// accepting signals.
func (e *Emitter[T]) Next(v T) bool {
	if e.done || !e.sub.active() {
		return false
	}
	e.down.onNext(v)
	return true
}

// Error terminates the run with err. Signals after Error are dropped.
func (e *Emitter[T]) Error(err error) {
	if e.done {
		return
	}
	e.done = true
	if e.sub.active() {
		e.down.onError(err)
	}
}

// Complete terminates the run normally.
func (e *Emitter[T]) Complete() {
	if e.done {
		return
	}
	e.done = true
	if e.sub.active() {
		e.down.onComplete()
	}
}

// Cancelled reports whether the consumer cancelled the run.
func (e *Emitter[T]) Cancelled() bool {
	return e.sub.State() == StateCancelled
}

// FromFunc creates a Flow from a generator. The generator runs once per
// subscription, on whatever lane the subscription signal arrived on, and
// should stop when Next returns false.
func FromFunc[T any](gen func(e *Emitter[T])) *Flow[T] {
	return &Flow[T]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[T]) {
			gen(&Emitter[T]{sub: sub, down: down})
		},
	}
}
