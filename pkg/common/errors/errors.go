package errors

import (
	"errors"
	"fmt"
	"syscall"
)

// Common error types used across the nanoserve library

var (
	// ErrQueueClosed indicates that a push was attempted on a queue that is
	// shutting down. Expected during shutdown; callers close the rejected
	// handle instead of treating this as a failure.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrEndOfQueue is the terminal pop value: the queue has shut down and
	// every previously queued item has been drained.
	ErrEndOfQueue = errors.New("end of queue")

	// ErrListenerClosed indicates that an operation was attempted on a
	// listener after shutdown was requested.
	ErrListenerClosed = errors.New("listener is closed")

	// ErrInvalidConfiguration indicates invalid construction parameters.
	// Fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConnectionClosed indicates that the peer closed the connection
	// before a complete request was read.
	ErrConnectionClosed = errors.New("connection closed by peer")
)

// IsTransient returns true for I/O conditions that the caller should retry
// rather than treat as a connection failure: would-block and interrupted
// system calls.
func IsTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EINTR)
}

// IsShutdown returns true if the error is part of the normal shutdown
// sequence and should not be logged as a failure.
func IsShutdown(err error) bool {
	return errors.Is(err, ErrQueueClosed) || errors.Is(err, ErrEndOfQueue) ||
		errors.Is(err, ErrListenerClosed)
}

// ValidationError describes an invalid configuration parameter.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a usage hint to the error message.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
