package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/streamkit/errors"
)

// waitSignal blocks until ch fires or the deadline passes.
func waitSignal(t *testing.T, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestImmediateScheduler(t *testing.T) {
	t.Run("runs task inline on the caller", func(t *testing.T) {
		s := NewImmediate()
		defer s.Dispose()
		w, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ran := false
		handle, err := w.Schedule(func() { ran = true })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ran {
			t.Error("task did not run before Schedule returned")
		}
		if handle.IsCancelled() {
			t.Error("completed handle should not report cancelled")
		}
	})

	t.Run("rejects time-based tasks", func(t *testing.T) {
		s := NewImmediate()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		if _, err := w.ScheduleDelayed(func() {}, time.Second); err == nil {
			t.Error("expected error for delayed task")
		} else if errors.CodeOf(err) != errors.ErrCodeInvalidInput {
			t.Errorf("expected INVALID_INPUT, got %s", errors.CodeOf(err))
		}
		if _, err := w.SchedulePeriodically(func() {}, 0, time.Second); err == nil {
			t.Error("expected error for periodic task")
		}
	})

	t.Run("rejects nil task", func(t *testing.T) {
		s := NewImmediate()
		defer s.Dispose()
		w, _ := s.CreateWorker()
		if _, err := w.Schedule(nil); err == nil {
			t.Error("expected error for nil task")
		}
	})

	t.Run("contains panics and reports them", func(t *testing.T) {
		reported := make(chan error, 1)
		OnUnhandledError(func(err error) { reported <- err })
		defer OnUnhandledError(nil)

		s := NewImmediate()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		if _, err := w.Schedule(func() { panic("boom") }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		select {
		case err := <-reported:
			if errors.CodeOf(err) != errors.ErrCodeTaskPanic {
				t.Errorf("expected TASK_PANIC, got %s", errors.CodeOf(err))
			}
		default:
			t.Fatal("panic was not reported to the error sink")
		}
	})

	t.Run("disposed scheduler refuses workers", func(t *testing.T) {
		s := NewImmediate()
		s.Dispose()
		if !s.IsDisposed() {
			t.Error("expected IsDisposed true")
		}
		if _, err := s.CreateWorker(); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}
	})
}

func TestWorkerOrdering(t *testing.T) {
	t.Run("same-time tasks run in submission order", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Hold the lane so all submissions queue up before any runs.
		gate := make(chan struct{})
		if _, err := w.Schedule(func() { <-gate }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var mu sync.Mutex
		var order []int
		done := make(chan struct{})
		for i := 1; i <= 3; i++ {
			i := i
			if _, err := w.Schedule(func() {
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
		close(gate)
		waitSignal(t, done, 2*time.Second, "all tasks")

		mu.Lock()
		defer mu.Unlock()
		for i, got := range order {
			if got != i+1 {
				t.Fatalf("expected submission order [1 2 3], got %v", order)
			}
		}
	})

	t.Run("shorter delay runs before longer delay", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var mu sync.Mutex
		var order []string
		done := make(chan struct{})
		record := func(id string) {
			mu.Lock()
			order = append(order, id)
			if len(order) == 2 {
				close(done)
			}
			mu.Unlock()
		}

		if _, err := w.ScheduleDelayed(func() { record("slow") }, 120*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.ScheduleDelayed(func() { record("fast") }, 20*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitSignal(t, done, 2*time.Second, "both delayed tasks")

		mu.Lock()
		defer mu.Unlock()
		if order[0] != "fast" || order[1] != "slow" {
			t.Errorf("expected [fast slow], got %v", order)
		}
	})

	t.Run("tasks on one worker never overlap", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var inFlight atomic.Int32
		var overlapped atomic.Bool
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			if _, err := w.Schedule(func() {
				defer wg.Done()
				if inFlight.Add(1) > 1 {
					overlapped.Store(true)
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		wg.Wait()
		if overlapped.Load() {
			t.Error("tasks on the same worker ran concurrently")
		}
	})
}

func TestWorkerCancellation(t *testing.T) {
	t.Run("cancel before fire prevents execution", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var ran atomic.Bool
		handle, err := w.ScheduleDelayed(func() { ran.Store(true) }, 50*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		handle.Cancel()
		if !handle.IsCancelled() {
			t.Error("expected IsCancelled true after Cancel")
		}
		handle.Cancel() // idempotent

		time.Sleep(120 * time.Millisecond)
		if ran.Load() {
			t.Error("cancelled task ran anyway")
		}
	})

	t.Run("cancel stops a periodic task", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var runs atomic.Int32
		third := make(chan struct{})
		handle, err := w.SchedulePeriodically(func() {
			if runs.Add(1) == 3 {
				close(third)
			}
		}, 0, 10*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitSignal(t, third, 2*time.Second, "three periodic runs")
		handle.Cancel()

		settled := runs.Load()
		time.Sleep(80 * time.Millisecond)
		if after := runs.Load(); after > settled+1 {
			t.Errorf("periodic task kept running after cancel: %d -> %d", settled, after)
		}
	})

	t.Run("periodic requires a positive period", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, _ := s.CreateWorker()
		if _, err := w.SchedulePeriodically(func() {}, 0, 0); err == nil {
			t.Error("expected error for zero period")
		}
	})
}

func TestWorkerDispose(t *testing.T) {
	t.Run("dispose cancels queued tasks and lets in-flight finish", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		started := make(chan struct{})
		release := make(chan struct{})
		finished := make(chan struct{})
		if _, err := w.Schedule(func() {
			close(started)
			<-release
			close(finished)
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var queuedRan atomic.Bool
		if _, err := w.Schedule(func() { queuedRan.Store(true) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		waitSignal(t, started, 2*time.Second, "first task start")
		w.Dispose()
		if !w.IsDisposed() {
			t.Error("expected IsDisposed true")
		}
		w.Dispose() // idempotent

		if _, err := w.Schedule(func() {}); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}

		close(release)
		waitSignal(t, finished, 2*time.Second, "in-flight task completion")
		time.Sleep(20 * time.Millisecond)
		if queuedRan.Load() {
			t.Error("queued task ran after worker dispose")
		}
	})

	t.Run("disposing one worker leaves lane peers running", func(t *testing.T) {
		s := NewSingle()
		defer s.Dispose()
		w1, _ := s.CreateWorker()
		w2, _ := s.CreateWorker()

		w1.Dispose()

		done := make(chan struct{})
		if _, err := w2.Schedule(func() { close(done) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitSignal(t, done, 2*time.Second, "peer worker task")
	})

	t.Run("disposed workers are pruned from tracking", func(t *testing.T) {
		s := NewSingle().(*singleScheduler)
		defer s.Dispose()
		w1, _ := s.CreateWorker()
		w2, _ := s.CreateWorker()

		w1.Dispose()

		s.mu.Lock()
		remaining := append([]*laneWorker(nil), s.workers...)
		s.mu.Unlock()
		if len(remaining) != 1 || remaining[0] != w2.(*laneWorker) {
			t.Errorf("expected only the live worker tracked, got %d entries", len(remaining))
		}
	})
}

func TestParallelScheduler(t *testing.T) {
	t.Run("distinct workers run concurrently", func(t *testing.T) {
		s := NewParallel(2)
		defer s.Dispose()
		w1, _ := s.CreateWorker()
		w2, _ := s.CreateWorker()

		var ready sync.WaitGroup
		ready.Add(2)
		release := make(chan struct{})
		body := func() {
			ready.Done()
			<-release
		}
		if _, err := w1.Schedule(body); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w2.Schedule(body); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		bothRunning := make(chan struct{})
		go func() {
			ready.Wait()
			close(bothRunning)
		}()
		waitSignal(t, bothRunning, 2*time.Second, "both lanes running")
		close(release)
	})

	t.Run("an extra task waits until a lane frees", func(t *testing.T) {
		s := NewParallel(2)
		defer s.Dispose()

		var ready sync.WaitGroup
		ready.Add(2)
		release := make(chan struct{})
		for i := 0; i < 2; i++ {
			w, err := s.CreateWorker()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := w.Schedule(func() {
				ready.Done()
				<-release
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		bothRunning := make(chan struct{})
		go func() {
			ready.Wait()
			close(bothRunning)
		}()
		waitSignal(t, bothRunning, 2*time.Second, "both lanes occupied")

		// A third worker round-robins onto an occupied lane, so its task
		// must not start while every lane is blocked.
		extra, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ran := make(chan struct{})
		if _, err := extra.Schedule(func() { close(ran) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		select {
		case <-ran:
			t.Fatal("extra task ran while every lane was busy")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		waitSignal(t, ran, 2*time.Second, "extra task after a lane freed")
	})

	t.Run("disposed workers are pruned from tracking", func(t *testing.T) {
		s := NewParallel(2).(*parallelScheduler)
		defer s.Dispose()
		w1, _ := s.CreateWorker()
		w2, _ := s.CreateWorker()

		w2.Dispose()

		s.mu.Lock()
		remaining := append([]*laneWorker(nil), s.workers...)
		s.mu.Unlock()
		if len(remaining) != 1 || remaining[0] != w1.(*laneWorker) {
			t.Errorf("expected only the live worker tracked, got %d entries", len(remaining))
		}
	})

	t.Run("defaults lane count when n is not positive", func(t *testing.T) {
		s := NewParallel(0)
		defer s.Dispose()
		if _, err := s.CreateWorker(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("dispose is idempotent and final", func(t *testing.T) {
		s := NewParallel(2)
		s.Dispose()
		s.Dispose()
		if _, err := s.CreateWorker(); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}
	})
}

func TestElasticScheduler(t *testing.T) {
	t.Run("reuses a reclaimed lane", func(t *testing.T) {
		es := NewElastic(time.Minute).(*elasticScheduler)
		defer es.Dispose()

		w1, err := es.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := w1.(*laneWorker).lane
		w1.Dispose()

		w2, err := es.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w2.(*laneWorker).lane != first {
			t.Error("expected second worker to reuse the idle lane")
		}

		done := make(chan struct{})
		if _, err := w2.Schedule(func() { close(done) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitSignal(t, done, 2*time.Second, "task on reused lane")
	})

	t.Run("grows beyond any fixed worker count", func(t *testing.T) {
		s := NewElastic(time.Minute)
		defer s.Dispose()

		var wg sync.WaitGroup
		release := make(chan struct{})
		for i := 0; i < 8; i++ {
			w, err := s.CreateWorker()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			wg.Add(1)
			if _, err := w.Schedule(func() {
				wg.Done()
				<-release
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		allRunning := make(chan struct{})
		go func() {
			wg.Wait()
			close(allRunning)
		}()
		waitSignal(t, allRunning, 2*time.Second, "all elastic lanes running")
		close(release)
	})

	t.Run("dispose tears down outstanding workers", func(t *testing.T) {
		s := NewElastic(time.Minute)
		w, _ := s.CreateWorker()
		s.Dispose()
		if !w.IsDisposed() {
			t.Error("expected outstanding worker disposed with scheduler")
		}
		if _, err := s.CreateWorker(); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}
	})
}

func TestLanePanicRecovery(t *testing.T) {
	reported := make(chan error, 1)
	OnUnhandledError(func(err error) { reported <- err })
	defer OnUnhandledError(nil)

	s := NewSingle()
	defer s.Dispose()
	w, _ := s.CreateWorker()

	if _, err := w.Schedule(func() { panic("lane boom") }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case err := <-reported:
		if errors.CodeOf(err) != errors.ErrCodeTaskPanic {
			t.Errorf("expected TASK_PANIC, got %s", errors.CodeOf(err))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not reported")
	}

	// Lane must survive the panic.
	done := make(chan struct{})
	if _, err := w.Schedule(func() { close(done) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitSignal(t, done, 2*time.Second, "task after panic")
}
