package scheduler

import (
	"sync"
	"time"

	"github.com/kbukum/streamkit/errors"
)

// singleScheduler backs every Worker with one shared lane, so all work
// submitted through this scheduler is serialized on exactly one goroutine.
type singleScheduler struct {
	mu       sync.Mutex
	lane     *lane
	workers  []*laneWorker
	disposed bool
}

// NewSingle creates a scheduler with one shared backing lane.
func NewSingle() Scheduler {
	return &singleScheduler{lane: newLane(SystemClock)}
}

func (s *singleScheduler) CreateWorker() (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, errors.SchedulerDisposed("single")
	}
	w := newLaneWorker(s.lane, s.reclaim)
	s.workers = append(s.workers, w)
	return w, nil
}

// reclaim drops an individually disposed worker from the tracking list
// so a long-lived scheduler does not accumulate dead entries.
func (s *singleScheduler) reclaim(w *laneWorker) {
	s.mu.Lock()
	for i, tracked := range s.workers {
		if tracked == w {
			s.workers = append(s.workers[:i], s.workers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *singleScheduler) Now() time.Time { return SystemClock.Now() }

func (s *singleScheduler) Dispose() {
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
	s.lane.shutdown()
}

func (s *singleScheduler) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
