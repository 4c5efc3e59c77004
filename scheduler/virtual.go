package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
)

// VirtualTimeScheduler executes delayed tasks deterministically without
// real waiting. Submissions are stamped with virtual-now plus the
// requested delay and parked; AdvanceTimeBy / AdvanceTimeTo run every
// due task synchronously on the calling goroutine, in timestamp order
// with ties broken by submission order. Tasks scheduled by a running
// task are picked up in the same advance when they still fall inside
// the target window.
type VirtualTimeScheduler struct {
	mu       sync.Mutex
	now      time.Time
	tasks    taskHeap
	seq      uint64
	disposed bool
}

// NewVirtualTime creates a virtual-time scheduler starting at the Unix
// epoch.
func NewVirtualTime() *VirtualTimeScheduler {
	return &VirtualTimeScheduler{now: time.Unix(0, 0).UTC()}
}

// CreateWorker returns a Worker whose submissions are parked until the
// clock is advanced.
func (s *VirtualTimeScheduler) CreateWorker() (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, errors.SchedulerDisposed("virtual-time")
	}
	return &virtualWorker{id: uuid.NewString(), parent: s}, nil
}

// Now returns the current virtual time.
func (s *VirtualTimeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AdvanceTimeBy moves the virtual clock forward by d, executing all due
// tasks before returning.
func (s *VirtualTimeScheduler) AdvanceTimeBy(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()
	s.AdvanceTimeTo(target)
}

// AdvanceTimeTo moves the virtual clock forward to target, executing all
// tasks with a fire time at or before target, in fire-time order. The
// clock never moves backwards.
func (s *VirtualTimeScheduler) AdvanceTimeTo(target time.Time) {
	s.mu.Lock()
	for {
		if s.disposed {
			break
		}
		next := s.tasks.peek()
		if next == nil || next.fireAt.After(target) {
			break
		}
		t := s.tasks.popTask()
		if t.fireAt.After(s.now) {
			s.now = t.fireAt
		}
		s.mu.Unlock()
		s.execute(t)
		s.mu.Lock()
	}
	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
}

// execute runs one due task on the advancing goroutine.
func (s *VirtualTimeScheduler) execute(t *scheduledTask) {
	if !t.tryStart() {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				ReportUnhandledError(errors.TaskPanic("virtual", r))
			}
		}()
		t.run()
	}()
	t.finish()
	if t.period > 0 && t.state.Load() == taskPending {
		s.mu.Lock()
		if !s.disposed {
			t.fireAt = t.fireAt.Add(t.period)
			s.seq++
			t.seq = s.seq
			s.tasks.pushTask(t)
		}
		s.mu.Unlock()
	}
}

// park queues t at virtual-now plus delay.
func (s *VirtualTimeScheduler) park(t *scheduledTask, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return errors.SchedulerDisposed("virtual-time")
	}
	t.fireAt = s.now.Add(delay)
	s.seq++
	t.seq = s.seq
	s.tasks.pushTask(t)
	return nil
}

// Dispose cancels all parked tasks. Idempotent.
func (s *VirtualTimeScheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	parked := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range parked {
		t.Cancel()
	}
}

// IsDisposed reports whether Dispose has been called.
func (s *VirtualTimeScheduler) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// virtualWorker submits into its scheduler's shared virtual heap. All
// virtual workers share one logical lane: the advancing goroutine.
type virtualWorker struct {
	id     string
	parent *VirtualTimeScheduler

	mu       sync.Mutex
	disposed bool
	pending  map[*scheduledTask]struct{}
}

func (w *virtualWorker) Schedule(task Task) (Cancellable, error) {
	return w.submit(task, 0, 0)
}

func (w *virtualWorker) ScheduleDelayed(task Task, delay time.Duration) (Cancellable, error) {
	return w.submit(task, delay, 0)
}

func (w *virtualWorker) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Cancellable, error) {
	if period <= 0 {
		return nil, errors.InvalidInput("period", "must be positive for periodic tasks")
	}
	return w.submit(task, initialDelay, period)
}

func (w *virtualWorker) submit(task Task, delay, period time.Duration) (Cancellable, error) {
	if task == nil {
		return nil, errors.InvalidInput("task", "must not be nil")
	}
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return nil, errors.WorkerDisposed(w.id)
	}
	t := &scheduledTask{run: task, period: period, onDone: w.untrack}
	if w.pending == nil {
		w.pending = make(map[*scheduledTask]struct{})
	}
	w.pending[t] = struct{}{}
	w.mu.Unlock()

	if err := w.parent.park(t, delay); err != nil {
		w.untrack(t)
		return nil, err
	}
	return t, nil
}

func (w *virtualWorker) untrack(t *scheduledTask) {
	w.mu.Lock()
	delete(w.pending, t)
	w.mu.Unlock()
}

func (w *virtualWorker) Dispose() {
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
}

func (w *virtualWorker) IsDisposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}
