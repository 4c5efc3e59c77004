package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/kbukum/streamkit/scheduler"

// WithMetrics wraps a Scheduler with OpenTelemetry metric recording.
// Each Worker created from the wrapper records counts of scheduled,
// completed and failed tasks plus a task-duration histogram, attributed
// with the given scheduler name.
func WithMetrics(inner Scheduler, name string) (Scheduler, error) {
	meter := otel.Meter(meterName)

	scheduled, err := meter.Int64Counter("streamkit.scheduler.tasks.scheduled",
		metric.WithDescription("Tasks submitted to workers"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("streamkit.scheduler.tasks.completed",
		metric.WithDescription("Tasks that ran to completion"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("streamkit.scheduler.tasks.failed",
		metric.WithDescription("Tasks that panicked"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("streamkit.scheduler.task.duration",
		metric.WithDescription("Task execution time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &meteredScheduler{
		inner:     inner,
		attrs:     metric.WithAttributes(attribute.String("scheduler", name)),
		scheduled: scheduled,
		completed: completed,
		failed:    failed,
		duration:  duration,
	}, nil
}

type meteredScheduler struct {
	inner     Scheduler
	attrs     metric.MeasurementOption
	scheduled metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func (s *meteredScheduler) CreateWorker() (Worker, error) {
	w, err := s.inner.CreateWorker()
	if err != nil {
		return nil, err
	}
	return &meteredWorker{inner: w, parent: s}, nil
}

func (s *meteredScheduler) Now() time.Time   { return s.inner.Now() }
func (s *meteredScheduler) Dispose()         { s.inner.Dispose() }
func (s *meteredScheduler) IsDisposed() bool { return s.inner.IsDisposed() }

type meteredWorker struct {
	inner  Worker
	parent *meteredScheduler
}

// instrument wraps a task body with metric recording. Panics are
// re-raised so the lane's error policy still applies.
func (w *meteredWorker) instrument(task Task) Task {
	if task == nil {
		return nil
	}
	return func() {
		start := time.Now()
		defer func() {
			elapsed := float64(time.Since(start).Microseconds()) / 1000.0
			w.parent.duration.Record(context.Background(), elapsed, w.parent.attrs)
			if r := recover(); r != nil {
				w.parent.failed.Add(context.Background(), 1, w.parent.attrs)
				panic(r)
			}
			w.parent.completed.Add(context.Background(), 1, w.parent.attrs)
		}()
		task()
	}
}

func (w *meteredWorker) Schedule(task Task) (Cancellable, error) {
	c, err := w.inner.Schedule(w.instrument(task))
	if err == nil {
		w.parent.scheduled.Add(context.Background(), 1, w.parent.attrs)
	}
	return c, err
}

func (w *meteredWorker) ScheduleDelayed(task Task, delay time.Duration) (Cancellable, error) {
	c, err := w.inner.ScheduleDelayed(w.instrument(task), delay)
	if err == nil {
		w.parent.scheduled.Add(context.Background(), 1, w.parent.attrs)
	}
	return c, err
}

func (w *meteredWorker) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Cancellable, error) {
	c, err := w.inner.SchedulePeriodically(w.instrument(task), initialDelay, period)
	if err == nil {
		w.parent.scheduled.Add(context.Background(), 1, w.parent.attrs)
	}
	return c, err
}

func (w *meteredWorker) Dispose()         { w.inner.Dispose() }
func (w *meteredWorker) IsDisposed() bool { return w.inner.IsDisposed() }
