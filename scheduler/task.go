package scheduler

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// Task states.
const (
	taskPending int32 = iota
	taskRunning
	taskDone
	taskCancelled
)

// scheduledTask is one queued unit of work on a lane.
type scheduledTask struct {
	run    Task
	fireAt time.Time
	seq    uint64
	period time.Duration // 0 for one-shot tasks
	state  atomic.Int32
	onDone func(*scheduledTask)
}

// Cancel prevents the task from running if it has not started yet. A
// task cancelled mid-run finishes its current execution but is never
// rescheduled, which is how periodic tasks stop.
func (t *scheduledTask) Cancel() {
	if t.state.CompareAndSwap(taskPending, taskCancelled) ||
		t.state.CompareAndSwap(taskRunning, taskCancelled) {
		if t.onDone != nil {
			t.onDone(t)
		}
	}
}

// IsCancelled reports whether Cancel took effect.
func (t *scheduledTask) IsCancelled() bool {
	return t.state.Load() == taskCancelled
}

// tryStart transitions pending -> running. Returns false when the task
// was cancelled in the meantime.
func (t *scheduledTask) tryStart() bool {
	return t.state.CompareAndSwap(taskPending, taskRunning)
}

// finish marks a running task completed. Periodic tasks go back to
// pending so the next occurrence can be cancelled through the same handle.
func (t *scheduledTask) finish() {
	if t.period > 0 {
		t.state.CompareAndSwap(taskRunning, taskPending)
		return
	}
	if t.state.CompareAndSwap(taskRunning, taskDone) && t.onDone != nil {
		t.onDone(t)
	}
}

// taskHeap is a min-heap over fire time, ties broken by submission order.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*scheduledTask)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

func (h *taskHeap) pushTask(t *scheduledTask) { heap.Push(h, t) }

func (h *taskHeap) popTask() *scheduledTask {
	if len(*h) == 0 {
		return nil
	}
	return heap.Pop(h).(*scheduledTask)
}

func (h taskHeap) peek() *scheduledTask {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
