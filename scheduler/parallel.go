package scheduler

import (
	"runtime"
	"sync"
	"time"

	"github.com/kbukum/streamkit/errors"
)

// parallelScheduler round-robins Workers across a fixed set of lanes.
// Submitting more concurrently-blocking tasks than lanes starves later
// tasks; the scheduler never grows beyond n.
type parallelScheduler struct {
	mu       sync.Mutex
	lanes    []*lane
	next     int
	workers  []*laneWorker
	disposed bool
}

// NewParallel creates a scheduler with n backing lanes. When n <= 0 it
// defaults to runtime.NumCPU().
func NewParallel(n int) Scheduler {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	lanes := make([]*lane, n)
	for i := range lanes {
		lanes[i] = newLane(SystemClock)
	}
	return &parallelScheduler{lanes: lanes}
}

func (s *parallelScheduler) CreateWorker() (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, errors.SchedulerDisposed("parallel")
	}
	l := s.lanes[s.next%len(s.lanes)]
	s.next++
	w := newLaneWorker(l, s.reclaim)
	s.workers = append(s.workers, w)
	return w, nil
}

// reclaim drops an individually disposed worker from the tracking list
// so a long-lived scheduler does not accumulate dead entries.
func (s *parallelScheduler) reclaim(w *laneWorker) {
	s.mu.Lock()
	for i, tracked := range s.workers {
		if tracked == w {
			s.workers = append(s.workers[:i], s.workers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *parallelScheduler) Now() time.Time { return SystemClock.Now() }

func (s *parallelScheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	workers := s.workers
	s.workers = nil
	s.mu.Unlock()

	for _, w := range workers {
		w.Dispose()
	}
	for _, l := range s.lanes {
		l.shutdown()
	}
}

func (s *parallelScheduler) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
