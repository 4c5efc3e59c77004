package flow

import (
	"github.com/kbukum/streamkit/scheduler"
)

// PublishOn moves the forward data path onto a Worker of s from this
// stage downstream. Each signal arriving from upstream is re-dispatched
// as a task on a single Worker, which preserves the original signal
// order. The backward subscription signal passes through inline on the
// caller's lane.
func PublishOn[T any](f *Flow[T], s scheduler.Scheduler) *Flow[T] {
	return &Flow[T]{
		kind: kindPublishSwitch,
		attach: func(sub *Subscription, down consumer[T]) {
			w, err := s.CreateWorker()
			if err != nil {
				down.onError(err)
				return
			}
			sub.addCleanup(w.Dispose)
			f.attach(sub, &publishConsumer[T]{sub: sub, worker: w, down: down})
		},
	}
}

// publishConsumer forwards every signal as a task on its worker. One
// worker means one lane, so ordering survives the hop. A submission the
// worker refuses, a saturated deferral budget or a disposal race, must
// not strand the run without a terminal signal: the refusal becomes the
// run's error, delivered inline when the lane cannot carry it.
type publishConsumer[T any] struct {
	sub    *Subscription
	worker scheduler.Worker
	down   consumer[T]
	done   bool
}

func (c *publishConsumer[T]) onNext(v T) {
	if c.done || !c.sub.active() {
		return
	}
	if _, err := c.worker.Schedule(func() { c.down.onNext(v) }); err != nil {
		c.done = true
		c.deliverError(err)
	}
}

func (c *publishConsumer[T]) onError(err error) {
	if c.done {
		return
	}
	c.done = true
	c.deliverError(err)
}

func (c *publishConsumer[T]) onComplete() {
	if c.done {
		return
	}
	c.done = true
	if _, err := c.worker.Schedule(func() { c.down.onComplete() }); err != nil {
		c.down.onComplete()
	}
}

// deliverError forwards err on the worker lane, falling back to inline
// delivery when the hop refuses the task.
func (c *publishConsumer[T]) deliverError(err error) {
	if _, schedErr := c.worker.Schedule(func() { c.down.onError(err) }); schedErr != nil {
		c.down.onError(err)
	}
}

// SubscribeOn moves the backward subscription signal, and everything it
// triggers upstream including the source's emission, onto a Worker of
// s. When several SubscribeOn stages are nested, the one closest to the
// consumer claims the subscription phase; the others just add scheduling
// hops on whatever lane it established.
func SubscribeOn[T any](f *Flow[T], s scheduler.Scheduler) *Flow[T] {
	return &Flow[T]{
		kind: kindSubscribeSwitch,
		attach: func(sub *Subscription, down consumer[T]) {
			w, err := s.CreateWorker()
			if err != nil {
				down.onError(err)
				return
			}
			sub.addCleanup(w.Dispose)
			if _, err := w.Schedule(func() { f.attach(sub, down) }); err != nil {
				down.onError(err)
			}
		},
	}
}
