// Package flow provides a lazy, composable pipeline over scheduler lanes.
//
// A Flow is assembled in one phase and executed in another. Composing
// operators (Map, Filter, PublishOn, ...) builds an immutable graph and
// runs nothing; each composition wraps its upstream, so one Flow can be
// reused in several pipelines. Calling Subscribe creates per-run state:
// an interest signal travels from the consumer back to the source, and
// only then does the source start pushing values forward.
//
// # Thread switching
//
// PublishOn moves the forward (data) path onto a Worker of the given
// scheduler from that point downstream. SubscribeOn moves the backward
// subscription signal, and therefore the source's own emission, onto a
// Worker of the given scheduler. Time-based sources (Timer, Interval)
// emit on the shared parallel scheduler unless overridden with
// WithScheduler.
//
// # Usage
//
//	f := flow.FromSlice([]int{1, 2, 3})
//	doubled := flow.Map(f, func(n int) (int, error) { return n * 2, nil })
//	hopped := flow.PublishOn(doubled, scheduler.Parallel())
//	sub := hopped.Subscribe(ctx,
//	    func(n int) { fmt.Println(n) },
//	    nil, nil)
//	defer sub.Cancel()
package flow
