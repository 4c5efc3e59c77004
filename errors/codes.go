package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Lifecycle errors
const (
	// ErrCodeSchedulerDisposed indicates an operation on a disposed scheduler.
	ErrCodeSchedulerDisposed ErrorCode = "SCHEDULER_DISPOSED"
	// ErrCodeWorkerDisposed indicates an operation on a disposed worker.
	ErrCodeWorkerDisposed ErrorCode = "WORKER_DISPOSED"
	// ErrCodeShutdown indicates the process-wide defaults were shut down.
	ErrCodeShutdown ErrorCode = "SHUTDOWN"
)

// Capacity errors (retryable)
const (
	// ErrCodeCapacityExceeded indicates a deferred-task queue is full.
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
)

// Task errors
const (
	// ErrCodeTaskPanic indicates a scheduled task panicked while running.
	ErrCodeTaskPanic ErrorCode = "TASK_PANIC"
)

// Pipeline errors
const (
	// ErrCodeSubscriptionCancelled indicates a signal was dropped because
	// the subscription had already been cancelled.
	ErrCodeSubscriptionCancelled ErrorCode = "SUBSCRIPTION_CANCELLED"
	// ErrCodeUnhandledSignal indicates a pipeline error signal reached a
	// terminal consumer with no error handler registered.
	ErrCodeUnhandledSignal ErrorCode = "UNHANDLED_SIGNAL"
)

// Validation errors
const (
	// ErrCodeInvalidConfig indicates a configuration value is invalid.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeCapacityExceeded: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
