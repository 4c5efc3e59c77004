package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
)

// immediateScheduler executes every task synchronously on the goroutine
// that calls Schedule. It owns no lanes and no goroutines.
type immediateScheduler struct {
	disposed atomic.Bool
}

// NewImmediate creates a scheduler that runs tasks inline on the caller.
// Time-based scheduling is rejected: there is no lane to wait on.
func NewImmediate() Scheduler {
	return &immediateScheduler{}
}

func (s *immediateScheduler) CreateWorker() (Worker, error) {
	if s.disposed.Load() {
		return nil, errors.SchedulerDisposed("immediate")
	}
	return &immediateWorker{id: uuid.NewString(), parent: s}, nil
}

func (s *immediateScheduler) Now() time.Time { return SystemClock.Now() }

func (s *immediateScheduler) Dispose() { s.disposed.Store(true) }

func (s *immediateScheduler) IsDisposed() bool { return s.disposed.Load() }

// immediateWorker runs tasks inline. Exclusivity holds trivially: the
// task completes before Schedule returns.
type immediateWorker struct {
	id       string
	parent   *immediateScheduler
	disposed atomic.Bool
}

func (w *immediateWorker) Schedule(task Task) (Cancellable, error) {
	if task == nil {
		return nil, errors.InvalidInput("task", "must not be nil")
	}
	if w.disposed.Load() || w.parent.disposed.Load() {
		return nil, errors.WorkerDisposed(w.id)
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				ReportUnhandledError(errors.TaskPanic(w.id, r))
			}
		}()
		task()
	}()
	return completedHandle{}, nil
}

func (w *immediateWorker) ScheduleDelayed(Task, time.Duration) (Cancellable, error) {
	return nil, errors.InvalidInput("delay", "immediate scheduler does not support time-based tasks")
}

func (w *immediateWorker) SchedulePeriodically(Task, time.Duration, time.Duration) (Cancellable, error) {
	return nil, errors.InvalidInput("period", "immediate scheduler does not support time-based tasks")
}

func (w *immediateWorker) Dispose() { w.disposed.Store(true) }

func (w *immediateWorker) IsDisposed() bool { return w.disposed.Load() }

// completedHandle is the Cancellable for work that already ran inline.
type completedHandle struct{}

func (completedHandle) Cancel()           {}
func (completedHandle) IsCancelled() bool { return false }
