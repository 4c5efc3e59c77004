package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/streamkit/errors"
)

func TestBoundedElasticScheduler(t *testing.T) {
	t.Run("hands out real workers up to the lane cap", func(t *testing.T) {
		s := NewBoundedElastic(2, 10, time.Minute)
		defer s.Dispose()

		w1, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		w2, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := w1.(*laneWorker); !ok {
			t.Errorf("expected lane-backed worker, got %T", w1)
		}
		if _, ok := w2.(*laneWorker); !ok {
			t.Errorf("expected lane-backed worker, got %T", w2)
		}

		w3, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := w3.(*deferredWorker); !ok {
			t.Errorf("expected deferred worker past the cap, got %T", w3)
		}
	})

	t.Run("deferred tasks run after rebind in submission order", func(t *testing.T) {
		s := NewBoundedElastic(1, 10, time.Minute)
		defer s.Dispose()

		w1, _ := s.CreateWorker()
		deferred, _ := s.CreateWorker()

		var mu sync.Mutex
		var order []int
		done := make(chan struct{})
		for i := 1; i <= 3; i++ {
			i := i
			if _, err := deferred.Schedule(func() {
				mu.Lock()
				order = append(order, i)
				if len(order) == 3 {
					close(done)
				}
				mu.Unlock()
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		// Nothing may run while the worker is unbound.
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		if len(order) != 0 {
			t.Fatalf("deferred tasks ran before a lane freed up: %v", order)
		}
		mu.Unlock()

		w1.Dispose()
		waitSignal(t, done, 2*time.Second, "replayed deferred tasks")

		mu.Lock()
		defer mu.Unlock()
		for i, got := range order {
			if got != i+1 {
				t.Fatalf("expected replay order [1 2 3], got %v", order)
			}
		}
	})

	t.Run("rejects submissions past the global queue budget", func(t *testing.T) {
		s := NewBoundedElastic(1, 3, time.Minute)
		defer s.Dispose()

		if _, err := s.CreateWorker(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		deferred, _ := s.CreateWorker()

		for i := 0; i < 3; i++ {
			if _, err := deferred.Schedule(func() {}); err != nil {
				t.Fatalf("submission %d failed: %v", i, err)
			}
		}
		_, err := deferred.Schedule(func() {})
		if err == nil {
			t.Fatal("expected capacity error on fourth submission")
		}
		if errors.CodeOf(err) != errors.ErrCodeCapacityExceeded {
			t.Errorf("expected CAPACITY_EXCEEDED, got %s", errors.CodeOf(err))
		}
		if !errors.IsRetryable(err) {
			t.Error("capacity errors should be retryable")
		}
	})

	t.Run("cancelling a queued task frees its budget slot", func(t *testing.T) {
		s := NewBoundedElastic(1, 1, time.Minute)
		defer s.Dispose()

		if _, err := s.CreateWorker(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		deferred, _ := s.CreateWorker()

		handle, err := deferred.Schedule(func() {})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := deferred.Schedule(func() {}); err == nil {
			t.Fatal("expected capacity error while slot is held")
		}
		handle.Cancel()
		if !handle.IsCancelled() {
			t.Error("expected IsCancelled true")
		}
		if _, err := deferred.Schedule(func() {}); err != nil {
			t.Errorf("expected slot to be free after cancel, got %v", err)
		}
	})

	t.Run("budget slot is released at most once per queued task", func(t *testing.T) {
		s := NewBoundedElastic(1, 1, time.Minute)
		defer s.Dispose()

		if _, err := s.CreateWorker(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		deferred, _ := s.CreateWorker()
		dw := deferred.(*deferredWorker)

		handle, err := deferred.Schedule(func() {})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		handle.Cancel()
		// A cancel can race the wholesale queue drain in bind or Dispose,
		// so removal may run again after the task is already gone. The
		// budget must not be credited a second time.
		dw.removeQueued(handle.(*deferredTask))

		if _, err := deferred.Schedule(func() {}); err != nil {
			t.Fatalf("expected one free slot, got %v", err)
		}
		if _, err := deferred.Schedule(func() {}); errors.CodeOf(err) != errors.ErrCodeCapacityExceeded {
			t.Errorf("expected CAPACITY_EXCEEDED past the budget, got %v", err)
		}
	})

	t.Run("cancelled queued tasks are skipped on replay", func(t *testing.T) {
		s := NewBoundedElastic(1, 10, time.Minute)
		defer s.Dispose()

		w1, _ := s.CreateWorker()
		deferred, _ := s.CreateWorker()

		var ranCancelled atomic.Bool
		handle, _ := deferred.Schedule(func() { ranCancelled.Store(true) })
		done := make(chan struct{})
		if _, err := deferred.Schedule(func() { close(done) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		handle.Cancel()

		w1.Dispose()
		waitSignal(t, done, 2*time.Second, "surviving queued task")
		if ranCancelled.Load() {
			t.Error("cancelled queued task ran after rebind")
		}
	})

	t.Run("deferred worker delegates after rebind", func(t *testing.T) {
		s := NewBoundedElastic(1, 10, time.Minute)
		defer s.Dispose()

		w1, _ := s.CreateWorker()
		deferred, _ := s.CreateWorker()

		bound := make(chan struct{})
		if _, err := deferred.Schedule(func() { close(bound) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		w1.Dispose()
		waitSignal(t, bound, 2*time.Second, "rebind")

		// Post-rebind submissions go straight to the lane.
		done := make(chan struct{})
		if _, err := deferred.Schedule(func() { close(done) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitSignal(t, done, 2*time.Second, "post-rebind task")
	})

	t.Run("disposing an unbound worker drops its queue", func(t *testing.T) {
		s := NewBoundedElastic(1, 2, time.Minute)
		defer s.Dispose()

		w1, _ := s.CreateWorker()
		deferred, _ := s.CreateWorker()

		var ran atomic.Bool
		if _, err := deferred.Schedule(func() { ran.Store(true) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		deferred.Dispose()
		if !deferred.IsDisposed() {
			t.Error("expected IsDisposed true")
		}
		if _, err := deferred.Schedule(func() {}); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}

		// Freed lane must not bind to the disposed worker.
		w1.Dispose()
		w2, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		done := make(chan struct{})
		if _, err := w2.Schedule(func() { close(done) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitSignal(t, done, 2*time.Second, "task on reclaimed lane")
		if ran.Load() {
			t.Error("queued task of a disposed worker ran")
		}
	})

	t.Run("scheduler dispose reaches deferred workers", func(t *testing.T) {
		s := NewBoundedElastic(1, 10, time.Minute)
		if _, err := s.CreateWorker(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		deferred, _ := s.CreateWorker()

		s.Dispose()
		if !deferred.IsDisposed() {
			t.Error("expected deferred worker disposed with scheduler")
		}
		if _, err := s.CreateWorker(); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}
	})

	t.Run("delayed queued tasks measure from rebind", func(t *testing.T) {
		s := NewBoundedElastic(1, 10, time.Minute)
		defer s.Dispose()

		w1, _ := s.CreateWorker()
		deferred, _ := s.CreateWorker()

		done := make(chan struct{})
		if _, err := deferred.ScheduleDelayed(func() { close(done) }, 60*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Let the original delay elapse while still unbound.
		time.Sleep(100 * time.Millisecond)
		rebindAt := time.Now()
		w1.Dispose()
		waitSignal(t, done, 2*time.Second, "delayed queued task")
		if elapsed := time.Since(rebindAt); elapsed < 40*time.Millisecond {
			t.Errorf("delay should restart at rebind, task ran after only %v", elapsed)
		}
	})
}
