// Package errors provides unified error handling for streamkit.
// It implements structured error types with machine-readable codes and
// retryable detection, so callers can distinguish lifecycle faults
// (disposed resources) from capacity faults and task panics.
package errors
