package scheduler

import (
	"sync"
	"time"

	"github.com/kbukum/streamkit/logger"
)

// Task is a unit of work submitted to a Worker.
type Task func()

// Cancellable is the handle returned by every Schedule* call.
// Cancelling before execution prevents the run; cancelling a task that
// has already started has no effect on that run.
type Cancellable interface {
	// Cancel requests that the task not run. Idempotent.
	Cancel()
	// IsCancelled reports whether the task was cancelled before running.
	IsCancelled() bool
}

// Worker is a single logical execution lane. Tasks submitted to one
// Worker execute sequentially, never overlapping, in scheduled-fire-time
// order with ties broken by submission order.
type Worker interface {
	// Schedule runs task as soon as possible.
	Schedule(task Task) (Cancellable, error)
	// ScheduleDelayed runs task once after delay.
	ScheduleDelayed(task Task, delay time.Duration) (Cancellable, error)
	// SchedulePeriodically runs task after initialDelay, then again every
	// period after each completion, until cancelled or disposed.
	SchedulePeriodically(task Task, initialDelay, period time.Duration) (Cancellable, error)
	// Dispose prevents new tasks, cancels queued tasks and lets any
	// in-flight task finish. Idempotent.
	Dispose()
	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool
}

// Scheduler creates Workers under a pooling policy and provides a clock.
type Scheduler interface {
	// CreateWorker returns a new Worker. It fails only when the scheduler
	// has been disposed.
	CreateWorker() (Worker, error)
	// Now returns the scheduler's own clock reading.
	Now() time.Time
	// Dispose releases all owned resources and disposes all outstanding
	// Workers. Idempotent and safe for concurrent use.
	Dispose()
	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool
}

// ErrorHandler receives task failures that have no narrower recovery point.
type ErrorHandler func(err error)

var (
	errorHandlerMu sync.RWMutex
	errorHandler   ErrorHandler = func(err error) {
		logger.WithComponent("scheduler").Error("unhandled task error", logger.Fields(
			logger.FieldError, err.Error(),
		))
	}
)

// OnUnhandledError installs the process-wide sink for task failures.
// Passing nil restores the default sink, which logs the error.
func OnUnhandledError(handler ErrorHandler) {
	errorHandlerMu.Lock()
	defer errorHandlerMu.Unlock()
	if handler == nil {
		handler = func(err error) {
			logger.WithComponent("scheduler").Error("unhandled task error", logger.Fields(
				logger.FieldError, err.Error(),
			))
		}
	}
	errorHandler = handler
}

// ReportUnhandledError routes err to the installed unhandled-error sink.
// Pipeline terminals use this for error signals nobody consumed.
func ReportUnhandledError(err error) {
	errorHandlerMu.RLock()
	handler := errorHandler
	errorHandlerMu.RUnlock()
	handler(err)
}
