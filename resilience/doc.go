// Package resilience provides retry with exponential backoff for
// operations that shed load, most notably task submission against a
// bounded-elastic scheduler whose deferred-task budget is full.
//
//	handle, err := resilience.Schedule(ctx, resilience.DefaultRetryConfig(), worker, task)
package resilience
