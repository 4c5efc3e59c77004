package flow

// Map transforms each value. A transform error becomes the run's error
// signal and stops forwarding.
func Map[I, O any](f *Flow[I], fn func(I) (O, error)) *Flow[O] {
	return &Flow[O]{
		kind: kindTransform,
		attach: func(sub *Subscription, down consumer[O]) {
			f.attach(sub, &mapConsumer[I, O]{down: down, fn: fn})
		},
	}
}

type mapConsumer[I, O any] struct {
	down consumer[O]
	fn   func(I) (O, error)
	done bool
}

func (c *mapConsumer[I, O]) onNext(v I) {
	if c.done {
		return
	}
	o, err := c.fn(v)
	if err != nil {
		c.done = true
		c.down.onError(err)
		return
	}
	c.down.onNext(o)
}

func (c *mapConsumer[I, O]) onError(err error) {
	if c.done {
		return
	}
	c.done = true
	c.down.onError(err)
}

func (c *mapConsumer[I, O]) onComplete() {
	if c.done {
		return
	}
	c.done = true
	c.down.onComplete()
}

// Filter keeps values matching the predicate.
func Filter[T any](f *Flow[T], pred func(T) bool) *Flow[T] {
	return &Flow[T]{
		kind: kindTransform,
		attach: func(sub *Subscription, down consumer[T]) {
			f.attach(sub, &filterConsumer[T]{down: down, pred: pred})
		},
	}
}

type filterConsumer[T any] struct {
	down consumer[T]
	pred func(T) bool
	done bool
}

func (c *filterConsumer[T]) onNext(v T) {
	if c.done {
		return
	}
	if c.pred(v) {
		c.down.onNext(v)
	}
}

func (c *filterConsumer[T]) onError(err error) {
	if c.done {
		return
	}
	c.done = true
	c.down.onError(err)
}

func (c *filterConsumer[T]) onComplete() {
	if c.done {
		return
	}
	c.done = true
	c.down.onComplete()
}

// Tap runs a side effect for each value without altering it.
func Tap[T any](f *Flow[T], fn func(T)) *Flow[T] {
	return Map(f, func(v T) (T, error) {
		fn(v)
		return v, nil
	})
}

// Take forwards the first n values, then completes and stops upstream
// delivery for this run.
func Take[T any](f *Flow[T], n int) *Flow[T] {
	return &Flow[T]{
		kind: kindTransform,
		attach: func(sub *Subscription, down consumer[T]) {
			f.attach(sub, &takeConsumer[T]{down: down, remaining: n})
		},
	}
}

type takeConsumer[T any] struct {
	down      consumer[T]
	remaining int
	done      bool
}

func (c *takeConsumer[T]) onNext(v T) {
	if c.done || c.remaining <= 0 {
		return
	}
	c.remaining--
	c.down.onNext(v)
	if c.remaining == 0 {
		c.done = true
		c.down.onComplete()
	}
}

func (c *takeConsumer[T]) onError(err error) {
	if c.done {
		return
	}
	c.done = true
	c.down.onError(err)
}

func (c *takeConsumer[T]) onComplete() {
	if c.done {
		return
	}
	c.done = true
	c.down.onComplete()
}
