package flow

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle state of one Subscription.
type State int32

const (
	// StateActive means signals are still being delivered.
	StateActive State = iota
	// StateCompleted means the source finished normally.
	StateCompleted
	// StateErrored means an error signal reached the consumer.
	StateErrored
	// StateCancelled means the consumer cancelled the run.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is one run of a pipeline, created by Subscribe and owned
// by that call. Terminal states are absorbing: once completed, errored
// or cancelled, no further signal reaches the consumer.
type Subscription struct {
	id    string
	state atomic.Int32

	mu       sync.Mutex
	cleanups []func()
}

func newSubscription() *Subscription {
	return &Subscription{id: uuid.NewString()}
}

// ID returns the unique identifier of this run.
func (s *Subscription) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// active reports whether signals should still be delivered.
func (s *Subscription) active() bool { return s.State() == StateActive }

// Cancel stops the run. Further signals are dropped and upstream workers
// are disposed on a best-effort basis so the source can stop producing.
// Cancellation is a distinct terminal outcome, not an error.
func (s *Subscription) Cancel() {
	s.terminate(StateCancelled)
}

// terminate moves the subscription into a terminal state. Returns true
// for the single caller that wins the transition; cleanups run exactly
// once.
func (s *Subscription) terminate(to State) bool {
	if !s.state.CompareAndSwap(int32(StateActive), int32(to)) {
		return false
	}
	s.mu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	return true
}

// addCleanup registers a function to run when the subscription reaches a
// terminal state. If it already has, f runs immediately.
func (s *Subscription) addCleanup(f func()) {
	s.mu.Lock()
	if s.active() {
		s.cleanups = append(s.cleanups, f)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	f()
}
