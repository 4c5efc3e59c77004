// Package scheduler provides execution-lane scheduling for streamkit.
//
// A Scheduler is a policy object that creates Workers under a pooling
// strategy and provides a clock. A Worker is a single execution lane:
// tasks submitted to one Worker run strictly one at a time, ordered by
// scheduled fire time with ties broken by submission order.
//
// # Variants
//
//   - NewImmediate: runs every task inline on the caller's goroutine.
//   - NewSingle: one shared backing lane for all Workers.
//   - NewParallel(n): round-robins Workers across n backing lanes.
//   - NewElastic(ttl): grows lanes on demand, reuses idle lanes within ttl.
//   - NewBoundedElastic(maxLanes, maxQueued, ttl): elastic up to maxLanes;
//     beyond the cap, Workers defer tasks until a lane frees up.
//   - NewVirtualTime: no goroutines; delayed tasks run synchronously when
//     the virtual clock is advanced.
//
// # Error handling
//
// A panic inside a task body never takes down its lane. It is recovered,
// wrapped as a TASK_PANIC error and routed to the scheduler's unhandled
// error handler (the package default logs it).
//
// # Usage
//
//	s := scheduler.NewParallel(4)
//	defer s.Dispose()
//	w, _ := s.CreateWorker()
//	w.ScheduleDelayed(func() { fmt.Println("later") }, time.Second)
package scheduler
