package scheduler

import (
	"testing"
	"time"

	"github.com/kbukum/streamkit/errors"
)

func TestVirtualTimeScheduler(t *testing.T) {
	t.Run("starts at the epoch and never waits", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		if got := s.Now(); !got.Equal(time.Unix(0, 0).UTC()) {
			t.Errorf("expected epoch start, got %v", got)
		}
	})

	t.Run("long delay runs synchronously on advance", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, err := s.CreateWorker()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		runs := 0
		if _, err := w.ScheduleDelayed(func() { runs++ }, 4*time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runs != 0 {
			t.Fatal("task ran before the clock advanced")
		}

		s.AdvanceTimeBy(4 * time.Hour)
		if runs != 1 {
			t.Errorf("expected exactly one run, got %d", runs)
		}
		if got, want := s.Now(), time.Unix(0, 0).UTC().Add(4*time.Hour); !got.Equal(want) {
			t.Errorf("expected Now %v, got %v", want, got)
		}

		// Advancing further does not rerun a one-shot task.
		s.AdvanceTimeBy(4 * time.Hour)
		if runs != 1 {
			t.Errorf("one-shot task ran again: %d", runs)
		}
	})

	t.Run("due tasks run in fire-time order with submission ties", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var order []string
		schedule := func(id string, delay time.Duration) {
			if _, err := w.ScheduleDelayed(func() { order = append(order, id) }, delay); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		schedule("late", 3*time.Hour)
		schedule("early-a", time.Hour)
		schedule("early-b", time.Hour) // same fire time, submitted after early-a

		s.AdvanceTimeBy(3 * time.Hour)
		want := []string{"early-a", "early-b", "late"}
		if len(order) != len(want) {
			t.Fatalf("expected %v, got %v", want, order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, order)
			}
		}
	})

	t.Run("clock inside a task reads that task's fire time", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var seen time.Time
		if _, err := w.ScheduleDelayed(func() { seen = s.Now() }, 90*time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.AdvanceTimeBy(5 * time.Hour)
		if want := time.Unix(0, 0).UTC().Add(90 * time.Minute); !seen.Equal(want) {
			t.Errorf("expected task to observe %v, got %v", want, seen)
		}
	})

	t.Run("tasks scheduled during an advance are picked up", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		var secondRan bool
		if _, err := w.ScheduleDelayed(func() {
			if _, err := w.ScheduleDelayed(func() { secondRan = true }, time.Hour); err != nil {
				t.Errorf("nested schedule failed: %v", err)
			}
		}, time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s.AdvanceTimeBy(3 * time.Hour)
		if !secondRan {
			t.Error("task scheduled mid-advance inside the window did not run")
		}
	})

	t.Run("periodic task repeats per advance window", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		runs := 0
		handle, err := w.SchedulePeriodically(func() { runs++ }, time.Second, time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.AdvanceTimeBy(5 * time.Second)
		if runs != 5 {
			t.Errorf("expected 5 runs, got %d", runs)
		}

		handle.Cancel()
		s.AdvanceTimeBy(5 * time.Second)
		if runs != 5 {
			t.Errorf("periodic task kept running after cancel: %d", runs)
		}
	})

	t.Run("advance to a past instant only runs due tasks", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		runs := 0
		if _, err := w.ScheduleDelayed(func() { runs++ }, time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.AdvanceTimeBy(2 * time.Hour)
		before := s.Now()

		// Moving to an earlier instant must not rewind the clock.
		s.AdvanceTimeTo(time.Unix(0, 0).UTC())
		if got := s.Now(); !got.Equal(before) {
			t.Errorf("clock moved backwards: %v -> %v", before, got)
		}
		if runs != 1 {
			t.Errorf("expected 1 run, got %d", runs)
		}
	})

	t.Run("cancel prevents a parked task", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w, _ := s.CreateWorker()

		ran := false
		handle, err := w.ScheduleDelayed(func() { ran = true }, time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		handle.Cancel()
		s.AdvanceTimeBy(2 * time.Hour)
		if ran {
			t.Error("cancelled task ran on advance")
		}
		if !handle.IsCancelled() {
			t.Error("expected IsCancelled true")
		}
	})

	t.Run("worker dispose cancels its parked tasks", func(t *testing.T) {
		s := NewVirtualTime()
		defer s.Dispose()
		w1, _ := s.CreateWorker()
		w2, _ := s.CreateWorker()

		var w1Ran, w2Ran bool
		if _, err := w1.ScheduleDelayed(func() { w1Ran = true }, time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w2.ScheduleDelayed(func() { w2Ran = true }, time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		w1.Dispose()
		s.AdvanceTimeBy(2 * time.Hour)
		if w1Ran {
			t.Error("disposed worker's task ran")
		}
		if !w2Ran {
			t.Error("sibling worker's task should still run")
		}
	})

	t.Run("scheduler dispose cancels everything", func(t *testing.T) {
		s := NewVirtualTime()
		w, _ := s.CreateWorker()

		ran := false
		if _, err := w.ScheduleDelayed(func() { ran = true }, time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.Dispose()
		s.Dispose() // idempotent
		s.AdvanceTimeBy(2 * time.Hour)
		if ran {
			t.Error("task ran after scheduler dispose")
		}
		if _, err := s.CreateWorker(); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error, got %v", err)
		}
		if _, err := w.Schedule(func() {}); !errors.IsDisposed(err) {
			t.Errorf("expected disposed error for parked submit, got %v", err)
		}
	})
}
