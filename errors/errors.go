package errors

import (
	"errors"
	"fmt"
)

// Error is the unified streamkit error type.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code. This lets
// callers match on code with errors.Is regardless of message or details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with automatic retryable detection.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// SchedulerDisposed creates an Error for an operation on a disposed scheduler.
func SchedulerDisposed(variant string) *Error {
	return &Error{
		Code: ErrCodeSchedulerDisposed, Message: fmt.Sprintf("scheduler %q has been disposed", variant),
		Retryable: false,
		Details:   map[string]any{"scheduler": variant},
	}
}

// WorkerDisposed creates an Error for an operation on a disposed worker.
func WorkerDisposed(workerID string) *Error {
	return &Error{
		Code: ErrCodeWorkerDisposed, Message: "worker has been disposed and rejects new tasks",
		Retryable: false,
		Details:   map[string]any{"worker_id": workerID},
	}
}

// CapacityExceeded creates an Error for a full deferred-task queue.
func CapacityExceeded(limit int) *Error {
	return &Error{
		Code: ErrCodeCapacityExceeded, Message: fmt.Sprintf("deferred task queue is full (limit %d)", limit),
		Retryable: true,
		Details:   map[string]any{"limit": limit},
	}
}

// TaskPanic creates an Error wrapping a recovered panic from a task body.
func TaskPanic(workerID string, recovered any) *Error {
	return &Error{
		Code: ErrCodeTaskPanic, Message: fmt.Sprintf("scheduled task panicked: %v", recovered),
		Retryable: false,
		Details:   map[string]any{"worker_id": workerID, "panic": fmt.Sprintf("%v", recovered)},
	}
}

// UnhandledSignal creates an Error for a pipeline error signal that reached
// a consumer without an error handler.
func UnhandledSignal(cause error) *Error {
	return &Error{
		Code: ErrCodeUnhandledSignal, Message: "pipeline error signal reached a consumer with no error handler",
		Retryable: false, Cause: cause,
	}
}

// InvalidConfig creates an Error for an invalid configuration value.
func InvalidConfig(field, reason string) *Error {
	return &Error{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("invalid configuration: %s %s", field, reason),
		Retryable: false,
		Details:   map[string]any{"field": field, "reason": reason},
	}
}

// InvalidInput creates an Error for invalid input.
func InvalidInput(field, reason string) *Error {
	return &Error{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s %s", field, reason),
		Retryable: false,
		Details:   map[string]any{"field": field, "reason": reason},
	}
}

// Validation creates an Error for a failed validation with a custom message.
func Validation(message string) *Error {
	return &Error{
		Code: ErrCodeInvalidInput, Message: message,
		Retryable: false,
	}
}

// MissingField creates an Error for a missing required field.
func MissingField(field string) *Error {
	return &Error{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("required field %q is missing", field),
		Retryable: false,
		Details:   map[string]any{"field": field},
	}
}

// Internal creates an Error for an unexpected internal fault.
func Internal(cause error) *Error {
	return &Error{
		Code: ErrCodeInternal, Message: "an unexpected internal error occurred",
		Retryable: false, Cause: cause,
	}
}

// --- Inspection helpers ---

// CodeOf returns the ErrorCode carried by err, or ErrCodeInternal when err
// is not a streamkit error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err carries a retryable code.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsDisposed reports whether err indicates a disposed scheduler or worker.
func IsDisposed(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeSchedulerDisposed || code == ErrCodeWorkerDisposed
}
