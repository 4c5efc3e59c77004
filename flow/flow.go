package flow

import (
	"context"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/scheduler"
)

// kind tags a pipeline stage. The closed set keeps dispatch flat: there
// is no operator hierarchy, only these four shapes.
type kind int

const (
	kindSource kind = iota
	kindTransform
	kindPublishSwitch
	kindSubscribeSwitch
)

func (k kind) String() string {
	switch k {
	case kindSource:
		return "source"
	case kindTransform:
		return "transform"
	case kindPublishSwitch:
		return "publish_switch"
	case kindSubscribeSwitch:
		return "subscribe_switch"
	default:
		return "unknown"
	}
}

// consumer receives the forward-flowing signals of one run. Exactly one
// of onError / onComplete is delivered, after which the run is over.
type consumer[T any] interface {
	onNext(v T)
	onError(err error)
	onComplete()
}

// Flow is an immutable, lazily-executed pipeline stage. Composing an
// operator onto a Flow returns a new Flow wrapping it; the original is
// unaffected and can be composed again. Nothing runs until Subscribe.
type Flow[T any] struct {
	kind kind
	// attach carries the backward interest signal: it wires down into
	// the per-run chain and, at the source, starts emission.
	attach func(sub *Subscription, down consumer[T])
}

// Subscribe runs the pipeline. The interest signal propagates from this
// terminal consumer back to the source, then data flows forward into
// onNext. Exactly one of onError / onComplete fires unless the run is
// cancelled first. A nil onError escalates error signals to the
// scheduler's unhandled-error sink. Cancelling ctx cancels the run.
func (f *Flow[T]) Subscribe(ctx context.Context, onNext func(T), onError func(error), onComplete func()) *Subscription {
	sub := newSubscription()

	spanCtx, span := observability.StartSpan(ctx, "flow.subscribe")
	observability.SetSpanAttribute(spanCtx, "subscription_id", sub.ID())
	sub.addCleanup(func() {
		observability.SetSpanAttribute(spanCtx, "state", sub.State().String())
		span.End()
	})

	if ctx != nil && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, sub.Cancel)
		sub.addCleanup(func() { stop() })
	}

	f.attach(sub, &terminalConsumer[T]{
		sub:      sub,
		next:     onNext,
		err:      onError,
		complete: onComplete,
	})
	return sub
}

// terminalConsumer enforces the absorbing terminal states: it is the
// only place a subscription transitions out of StateActive on the data
// path, so late or duplicate signals are dropped here no matter what an
// upstream stage does.
type terminalConsumer[T any] struct {
	sub      *Subscription
	next     func(T)
	err      func(error)
	complete func()
}

func (c *terminalConsumer[T]) onNext(v T) {
	if !c.sub.active() {
		return
	}
	if c.next != nil {
		c.next(v)
	}
}

func (c *terminalConsumer[T]) onError(err error) {
	if !c.sub.terminate(StateErrored) {
		return
	}
	if c.err != nil {
		c.err(err)
		return
	}
	scheduler.ReportUnhandledError(errors.UnhandledSignal(err))
}

func (c *terminalConsumer[T]) onComplete() {
	if !c.sub.terminate(StateCompleted) {
		return
	}
	if c.complete != nil {
		c.complete()
	}
}
