package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError wraps a failure of an external collaborator that is worth retrying.
type TransientError struct {
	Op  string
	Err error
}

// Error implements the error interface for TransientError.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError creates a new TransientError for the given operation.
func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// FatalAuthError is returned when credentials are missing, invalid or exhausted.
// It aborts a whole session.
type FatalAuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface for FatalAuthError.
func (e *FatalAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *FatalAuthError) Unwrap() error {
	return e.Err
}

// NewFatalAuthError creates a new FatalAuthError.
func NewFatalAuthError(reason string, err error) error {
	return &FatalAuthError{Reason: reason, Err: err}
}

// NotFoundError reports a resource that does not exist on the remote side.
type NotFoundError struct {
	Resource string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// CommandError represents a failed CLI command together with its exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
	}
}

// IsRetryable reports whether err should be retried by a retry policy.
// Transient errors and network timeouts are retryable; auth, not-found and
// context cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var authErr *FatalAuthError
	if errors.As(err, &authErr) {
		return false
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsFatal reports whether err must abort the whole session.
func IsFatal(err error) bool {
	var authErr *FatalAuthError
	return errors.As(err, &authErr)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
