package flow

import (
	"time"

	"github.com/kbukum/streamkit/scheduler"
)

// timeConfig carries the scheduler override for time-based sources.
type timeConfig struct {
	scheduler scheduler.Scheduler
}

// TimeOption configures a time-based source.
type TimeOption func(*timeConfig)

// WithScheduler overrides the scheduler a time-based source emits on.
// Without it, Timer and Interval emit on scheduler.Parallel().
func WithScheduler(s scheduler.Scheduler) TimeOption {
	return func(c *timeConfig) { c.scheduler = s }
}

func resolveTimeConfig(opts []TimeOption) timeConfig {
	var cfg timeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.scheduler == nil {
		cfg.scheduler = scheduler.Parallel()
	}
	return cfg
}

// Timer emits a single zero after delay, then completes. Emission
// happens on a Worker of the configured scheduler, so a Timer behaves as
// if it carried an implicit PublishOn.
func Timer(delay time.Duration, opts ...TimeOption) *Flow[int64] {
	cfg := resolveTimeConfig(opts)
	return &Flow[int64]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[int64]) {
			w, err := cfg.scheduler.CreateWorker()
			if err != nil {
				down.onError(err)
				return
			}
			sub.addCleanup(w.Dispose)
			if _, err := w.ScheduleDelayed(func() {
				if !sub.active() {
					return
				}
				down.onNext(0)
				if sub.active() {
					down.onComplete()
				}
			}, delay); err != nil {
				down.onError(err)
			}
		},
	}
}

// Interval emits an increasing counter every period, starting after one
// period, until cancelled. Like Timer it emits on a Worker of the
// configured scheduler.
func Interval(period time.Duration, opts ...TimeOption) *Flow[int64] {
	cfg := resolveTimeConfig(opts)
	return &Flow[int64]{
		kind: kindSource,
		attach: func(sub *Subscription, down consumer[int64]) {
			w, err := cfg.scheduler.CreateWorker()
			if err != nil {
				down.onError(err)
				return
			}
			sub.addCleanup(w.Dispose)
			var n int64
			if _, err := w.SchedulePeriodically(func() {
				if !sub.active() {
					return
				}
				down.onNext(n)
				n++
			}, period, period); err != nil {
				down.onError(err)
			}
		},
	}
}
