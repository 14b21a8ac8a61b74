package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed or missing input (bad credential,
	// empty required field). Surfaced synchronously, never as a panic.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeRemoteRejected indicates the identity service answered with a
	// non-2xx status and a message meant for the UI layer.
	ErrCodeRemoteRejected ErrorCode = "remote_rejected"
	// ErrCodeSessionLost indicates an authoritative 401/403 on an
	// authenticated call. Handled exclusively by the request guard.
	ErrCodeSessionLost ErrorCode = "session_lost"
	// ErrCodeTransport indicates no response was reachable at all. Distinct
	// from session loss and never mutates session state.
	ErrCodeTransport ErrorCode = "transport"
	// ErrCodeCanceled indicates a benign termination (user closed the
	// handshake window, context canceled).
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeNotFound indicates a missing stored value.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// RemoteRejected creates a new RemoteRejected error carrying the service message.
func RemoteRejected(message string) *AppError {
	return &AppError{Code: ErrCodeRemoteRejected, Message: message}
}

// SessionLost creates a new SessionLost error.
func SessionLost(message string) *AppError {
	return &AppError{Code: ErrCodeSessionLost, Message: message}
}

// Transport wraps a connectivity failure.
func Transport(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeTransport, Message: message, Cause: cause}
}

// Canceled creates a new Canceled error.
func Canceled(message string) *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: message}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Internal creates a new Internal error wrapping a cause.
func Internal(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns ErrCodeInternal for nil or non-AppError values.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// MessageOf extracts the human-readable message from an error chain.
// Falls back to err.Error() when the error is not an AppError.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Is reports whether the error chain contains an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
