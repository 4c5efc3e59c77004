package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// lane is a single backing goroutine draining a task heap. All ordering
// guarantees of a Worker reduce to the ordering of its lane: earliest
// fire time first, ties by submission order, one task at a time.
type lane struct {
	id    string
	clock Clock

	mu     sync.Mutex
	tasks  taskHeap
	seq    uint64
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newLane(clock Clock) *lane {
	l := &lane{
		id:    uuid.NewString(),
		clock: clock,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.loop()
	logger.WithComponent("scheduler").Debug("lane started", logger.Fields(
		logger.FieldLane, l.id,
	))
	return l
}

// submit queues t on the lane. The caller has already stamped fireAt.
func (l *lane) submit(t *scheduledTask) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.WorkerDisposed(l.id)
	}
	l.seq++
	t.seq = l.seq
	l.tasks.pushTask(t)
	l.mu.Unlock()
	l.notify()
	return nil
}

// notify wakes the loop without blocking the submitter.
func (l *lane) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) loop() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		next := l.tasks.peek()
		if next == nil {
			l.mu.Unlock()
			select {
			case <-l.wake:
			case <-l.stop:
			}
			continue
		}
		if wait := next.fireAt.Sub(l.clock.Now()); wait > 0 {
			l.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-l.wake:
				timer.Stop()
			case <-l.stop:
				timer.Stop()
			}
			continue
		}
		t := l.tasks.popTask()
		l.mu.Unlock()
		l.execute(t)
	}
}

// execute runs one task, containing panics so the lane survives.
func (l *lane) execute(t *scheduledTask) {
	if !t.tryStart() {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				ReportUnhandledError(errors.TaskPanic(l.id, r))
			}
		}()
		t.run()
	}()
	t.finish()
	if t.period > 0 && t.state.Load() == taskPending {
		l.reschedule(t)
	}
}

// reschedule re-queues a periodic task for its next occurrence.
func (l *lane) reschedule(t *scheduledTask) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		t.Cancel()
		return
	}
	t.fireAt = l.clock.Now().Add(t.period)
	l.seq++
	t.seq = l.seq
	l.tasks.pushTask(t)
	l.mu.Unlock()
	l.notify()
}

// shutdown closes the lane: pending tasks are cancelled, the in-flight
// task (if any) finishes, and the loop goroutine exits. Idempotent.
func (l *lane) shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	pending := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, t := range pending {
		t.Cancel()
	}
	close(l.stop)
	logger.WithComponent("scheduler").Debug("lane stopped", logger.Fields(
		logger.FieldLane, l.id,
	))
}

// join blocks until the loop goroutine has exited.
func (l *lane) join() { <-l.done }
