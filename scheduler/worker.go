package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
)

// laneWorker is a Worker bound to one backing lane. Several workers may
// share a lane (single scheduler, parallel round-robin); disposing one
// worker only cancels the tasks submitted through it.
type laneWorker struct {
	id   string
	lane *lane

	// release is invoked once on Dispose so pooling schedulers can
	// reclaim the lane. May be nil.
	release func(*laneWorker)

	mu       sync.Mutex
	disposed bool
	pending  map[*scheduledTask]struct{}
}

func newLaneWorker(l *lane, release func(*laneWorker)) *laneWorker {
	return &laneWorker{
		id:      uuid.NewString(),
		lane:    l,
		release: release,
		pending: make(map[*scheduledTask]struct{}),
	}
}

func (w *laneWorker) Schedule(task Task) (Cancellable, error) {
	return w.submit(task, 0, 0)
}

func (w *laneWorker) ScheduleDelayed(task Task, delay time.Duration) (Cancellable, error) {
	return w.submit(task, delay, 0)
}

func (w *laneWorker) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Cancellable, error) {
	if period <= 0 {
		return nil, errors.InvalidInput("period", "must be positive for periodic tasks")
	}
	return w.submit(task, initialDelay, period)
}

func (w *laneWorker) submit(task Task, delay, period time.Duration) (Cancellable, error) {
	if task == nil {
		return nil, errors.InvalidInput("task", "must not be nil")
	}
	t := &scheduledTask{
		run:    task,
		fireAt: w.lane.clock.Now().Add(delay),
		period: period,
		onDone: w.untrack,
	}

	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return nil, errors.WorkerDisposed(w.id)
	}
	w.pending[t] = struct{}{}
	w.mu.Unlock()

	if err := w.lane.submit(t); err != nil {
		w.untrack(t)
		return nil, errors.WorkerDisposed(w.id).WithCause(err)
	}
	return t, nil
}

func (w *laneWorker) untrack(t *scheduledTask) {
	w.mu.Lock()
	delete(w.pending, t)
	w.mu.Unlock()
}

func (w *laneWorker) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	pending := make([]*scheduledTask, 0, len(w.pending))
	for t := range w.pending {
		pending = append(pending, t)
	}
	w.pending = nil
	w.mu.Unlock()

	for _, t := range pending {
		t.Cancel()
	}
	if w.release != nil {
		w.release(w)
	}
}

func (w *laneWorker) IsDisposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}
