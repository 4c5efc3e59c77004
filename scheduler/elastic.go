package scheduler

import (
	"sync"
	"time"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// DefaultElasticTTL is how long an idle lane is kept for reuse before
// its goroutine is torn down.
const DefaultElasticTTL = 60 * time.Second

// idleLane is a parked lane awaiting reuse.
type idleLane struct {
	lane  *lane
	since time.Time
}

// elasticScheduler creates a lane per Worker on demand. Disposed Workers
// park their lane in an idle pool; parked lanes are reused within ttl and
// reaped after it.
type elasticScheduler struct {
	ttl time.Duration

	mu       sync.Mutex
	idle     []idleLane
	busy     map[*laneWorker]*lane
	disposed bool

	stopReaper chan struct{}
}

// NewElastic creates an unbounded demand-driven scheduler. When ttl <= 0
// it defaults to DefaultElasticTTL.
func NewElastic(ttl time.Duration) Scheduler {
	if ttl <= 0 {
		ttl = DefaultElasticTTL
	}
	s := &elasticScheduler{
		ttl:        ttl,
		busy:       make(map[*laneWorker]*lane),
		stopReaper: make(chan struct{}),
	}
	go s.reap()
	return s
}

func (s *elasticScheduler) CreateWorker() (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, errors.SchedulerDisposed("elastic")
	}
	var l *lane
	if n := len(s.idle); n > 0 {
		l = s.idle[n-1].lane
		s.idle = s.idle[:n-1]
	} else {
		l = newLane(SystemClock)
	}
	w := newLaneWorker(l, s.reclaim)
	s.busy[w] = l
	return w, nil
}

// reclaim parks a disposed worker's lane for reuse.
func (s *elasticScheduler) reclaim(w *laneWorker) {
	s.mu.Lock()
	l, ok := s.busy[w]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.busy, w)
	if s.disposed {
		s.mu.Unlock()
		l.shutdown()
		return
	}
	s.idle = append(s.idle, idleLane{lane: l, since: SystemClock.Now()})
	s.mu.Unlock()
}

// reap tears down lanes that sat idle longer than ttl.
func (s *elasticScheduler) reap() {
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
				} else {
					kept = append(kept, il)
				}
			}
			s.idle = kept
			s.mu.Unlock()
			for _, l := range expired {
				l.shutdown()
			}
			if len(expired) > 0 {
				logger.WithComponent("scheduler").Debug("reaped idle lanes", logger.Fields(
					logger.FieldScheduler, "elastic",
					"count", len(expired),
				))
			}
		}
	}
}

func (s *elasticScheduler) Now() time.Time { return SystemClock.Now() }

func (s *elasticScheduler) Dispose() {
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
	idle := s.idle
	s.idle = nil
	s.mu.Unlock()

	close(s.stopReaper)
	for _, w := range workers {
		w.Dispose()
	}
	for _, il := range idle {
		il.lane.shutdown()
	}
}

func (s *elasticScheduler) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
