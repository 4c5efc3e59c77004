package scheduler

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// Defaults for NewBoundedElastic, applied when an argument is <= 0.
const (
	DefaultBoundedMaxQueued = 100000
)

// boundedScheduler behaves like the elastic scheduler up to maxLanes.
// Once the cap is reached, CreateWorker returns a deferred Worker that
// queues its tasks; when a lane frees up the oldest deferred Worker is
// transparently rebound to it and its queue is replayed. Queued delays
// are measured from rebind time, not from original submission.
type boundedScheduler struct {
	maxLanes  int
	maxQueued int
	ttl       time.Duration

	mu        sync.Mutex
	idle      []idleLane
	busy      map[*laneWorker]*lane
	waiting   []*deferredWorker
	liveLanes int
	queued    int
	disposed  bool

	stopReaper chan struct{}
}

// NewBoundedElastic creates a demand-driven scheduler capped at maxLanes
// concurrent lanes with at most maxQueued tasks deferred across all
// unbound Workers. maxLanes defaults to 10*NumCPU, maxQueued to
// DefaultBoundedMaxQueued, ttl to DefaultElasticTTL.
func NewBoundedElastic(maxLanes, maxQueued int, ttl time.Duration) Scheduler {
	if maxLanes <= 0 {
		maxLanes = 10 * runtime.NumCPU()
	}
	if maxQueued <= 0 {
		maxQueued = DefaultBoundedMaxQueued
	}
	if ttl <= 0 {
		ttl = DefaultElasticTTL
	}
	s := &boundedScheduler{
		maxLanes:   maxLanes,
		maxQueued:  maxQueued,
		ttl:        ttl,
		busy:       make(map[*laneWorker]*lane),
		stopReaper: make(chan struct{}),
	}
	go s.reap()
	return s
}

func (s *boundedScheduler) CreateWorker() (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, errors.SchedulerDisposed("bounded-elastic")
	}
	if n := len(s.idle); n > 0 {
		l := s.idle[n-1].lane
		s.idle = s.idle[:n-1]
		w := newLaneWorker(l, s.reclaim)
		s.busy[w] = l
		return w, nil
	}
	if s.liveLanes < s.maxLanes {
		l := newLane(SystemClock)
		s.liveLanes++
		w := newLaneWorker(l, s.reclaim)
		s.busy[w] = l
		return w, nil
	}
	dw := &deferredWorker{id: uuid.NewString(), parent: s}
	s.waiting = append(s.waiting, dw)
	return dw, nil
}

// reclaim hands a freed lane to the oldest waiting deferred worker, or
// parks it in the idle pool.
func (s *boundedScheduler) reclaim(w *laneWorker) {
	s.mu.Lock()
	l, ok := s.busy[w]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.busy, w)
	s.mu.Unlock()
	s.releaseLane(l)
}

func (s *boundedScheduler) releaseLane(l *lane) {
	for {
		s.mu.Lock()
		if s.disposed {
			s.liveLanes--
			s.mu.Unlock()
			l.shutdown()
			return
		}
		if len(s.waiting) == 0 {
			s.idle = append(s.idle, idleLane{lane: l, since: SystemClock.Now()})
			s.mu.Unlock()
			return
		}
		dw := s.waiting[0]
		s.waiting = s.waiting[1:]
		s.mu.Unlock()
		if dw.bind(l) {
			return
		}
		// dw was disposed before a lane freed up; try the next one.
	}
}

// enqueueDeferred reserves one slot in the global deferred-task budget.
func (s *boundedScheduler) enqueueDeferred() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued >= s.maxQueued {
		return errors.CapacityExceeded(s.maxQueued)
	}
	s.queued++
	return nil
}

// releaseDeferred returns n slots to the global deferred-task budget.
func (s *boundedScheduler) releaseDeferred(n int) {
	s.mu.Lock()
	s.queued -= n
	s.mu.Unlock()
}

// registerBound records a rebound worker so scheduler disposal reaches it.
func (s *boundedScheduler) registerBound(w *laneWorker, l *lane) {
	s.mu.Lock()
	s.busy[w] = l
	s.mu.Unlock()
}

func (s *boundedScheduler) reap() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopReaper:
			return
		case <-ticker.C:
			cutoff := SystemClock.Now().Add(-s.ttl)
			var expired []*lane
			s.mu.Lock()
			kept := s.idle[:0]
			for _, il := range s.idle {
				if il.since.Before(cutoff) {
					expired = append(expired, il.lane)
					s.liveLanes--
				} else {
					kept = append(kept, il)
				}
			}
			s.idle = kept
			s.mu.Unlock()
			for _, l := range expired {
				l.shutdown()
			}
		}
	}
}

func (s *boundedScheduler) Now() time.Time { return SystemClock.Now() }

func (s *boundedScheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	workers := make([]*laneWorker, 0, len(s.busy))
	for w := range s.busy {
		workers = append(workers, w)
	}
	waiting := s.waiting
	s.waiting = nil
	idle := s.idle
	s.idle = nil
	s.liveLanes -= len(idle)
	s.mu.Unlock()

	close(s.stopReaper)
	for _, dw := range waiting {
		dw.Dispose()
	}
	for _, w := range workers {
		w.Dispose()
	}
	for _, il := range idle {
		il.lane.shutdown()
	}
}

func (s *boundedScheduler) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// --- deferred worker ---

// deferredTask is a queued submission awaiting a lane, and the
// Cancellable handle handed back to the caller. After rebind it proxies
// to the real task handle.
type deferredTask struct {
	task   Task
	delay  time.Duration
	period time.Duration

	mu        sync.Mutex
	cancelled bool
	inner     Cancellable
	owner     *deferredWorker
}

func (t *deferredTask) Cancel() {
	t.mu.Lock()
	if t.inner != nil {
		inner := t.inner
		t.mu.Unlock()
		inner.Cancel()
		return
	}
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	t.mu.Unlock()
	t.owner.removeQueued(t)
}

func (t *deferredTask) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inner != nil {
		return t.inner.IsCancelled()
	}
	return t.cancelled
}

// deferredWorker is handed out once the lane cap is reached. It queues
// submissions until releaseLane rebinds it to a freed lane, then
// delegates everything to the bound worker.
type deferredWorker struct {
	id     string
	parent *boundedScheduler

	mu       sync.Mutex
	queue    []*deferredTask
	bound    *laneWorker
	disposed bool
}

func (w *deferredWorker) Schedule(task Task) (Cancellable, error) {
	return w.submit(task, 0, 0)
}

func (w *deferredWorker) ScheduleDelayed(task Task, delay time.Duration) (Cancellable, error) {
	return w.submit(task, delay, 0)
}

func (w *deferredWorker) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Cancellable, error) {
	if period <= 0 {
		return nil, errors.InvalidInput("period", "must be positive for periodic tasks")
	}
	return w.submit(task, initialDelay, period)
}

func (w *deferredWorker) submit(task Task, delay, period time.Duration) (Cancellable, error) {
	if task == nil {
		return nil, errors.InvalidInput("task", "must not be nil")
	}
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return nil, errors.WorkerDisposed(w.id)
	}
	if w.bound != nil {
		bound := w.bound
		w.mu.Unlock()
		return bound.submit(task, delay, period)
	}
	if err := w.parent.enqueueDeferred(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	t := &deferredTask{task: task, delay: delay, period: period, owner: w}
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	return t, nil
}

// bind attaches the worker to a freed lane and replays its queue.
// Queued delays restart from this moment. Returns false when the worker
// was disposed while waiting.
func (w *deferredWorker) bind(l *lane) bool {
	w.mu.Lock()
	if w.disposed || w.bound != nil {
		w.mu.Unlock()
		return false
	}
	inner := newLaneWorker(l, w.parent.reclaim)
	w.bound = inner
	queue := w.queue
	w.queue = nil
	w.mu.Unlock()

	w.parent.registerBound(inner, l)
	w.parent.releaseDeferred(len(queue))

	for _, t := range queue {
		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			continue
		}
		handle, err := inner.submit(t.task, t.delay, t.period)
		if err != nil {
			t.mu.Unlock()
			ReportUnhandledError(errors.Internal(err).WithDetail("operation", "rebind"))
			continue
		}
		t.inner = handle
		t.mu.Unlock()
	}
	logger.WithComponent("scheduler").Debug("deferred worker rebound", logger.Fields(
		logger.FieldWorker, w.id,
		logger.FieldLane, l.id,
		logger.FieldQueueDepth, len(queue),
	))
	return true
}

// removeQueued drops a cancelled task from the queue and returns its
// slot to the global budget. The slot is released only when the task
// was still queued here: bind and Dispose drain the queue wholesale and
// release those slots themselves, so a cancel that loses that race must
// not release a second time.
func (w *deferredWorker) removeQueued(t *deferredTask) {
	removed := false
	w.mu.Lock()
	for i, qt := range w.queue {
		if qt == t {
			w.queue = append(w.queue[:i], w.queue[i+1:]...)
			removed = true
			break
		}
	}
	w.mu.Unlock()
	if removed {
		w.parent.releaseDeferred(1)
	}
}

func (w *deferredWorker) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	bound := w.bound
	queue := w.queue
	w.queue = nil
	w.mu.Unlock()

	if bound != nil {
		bound.Dispose()
		return
	}
	for _, t := range queue {
		t.mu.Lock()
		t.cancelled = true
		t.mu.Unlock()
	}
	w.parent.releaseDeferred(len(queue))
}

func (w *deferredWorker) IsDisposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}
