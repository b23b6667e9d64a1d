// Package apperrors provides a typed application error with a fixed taxonomy,
// letting callers branch on failure category instead of matching strings.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an AppError for dispatch by callers (retry logic,
// HTTP status mapping, fatal-at-startup checks).
type ErrorType string

// Error type constants.
const (
	ErrUnknown         ErrorType = "Unknown"
	ErrInternal        ErrorType = "Internal"
	ErrSystem          ErrorType = "System"
	ErrInvalidInput    ErrorType = "InvalidInput"
	ErrConflict        ErrorType = "Conflict"
	ErrNotFound        ErrorType = "NotFound"
	ErrExecutionFailed ErrorType = "ExecutionFailed"
	ErrTimeout         ErrorType = "Timeout"
	ErrUnavailable     ErrorType = "Unavailable"
)

// AppError is the application's error type: a category plus an optional
// wrapped cause.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with no wrapped cause.
func New(errType ErrorType, message string) error {
	return &AppError{Type: errType, Message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(errType ErrorType, format string, args ...any) error {
	return New(errType, fmt.Sprintf(format, args...))
}

// Wrap creates an AppError carrying err as its cause.
func Wrap(err error, errType ErrorType, message string) error {
	return &AppError{Type: errType, Message: message, Cause: err}
}

// Wrapf is Wrap with fmt.Sprintf formatting.
func Wrapf(err error, errType ErrorType, format string, args ...any) error {
	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// Is reports whether err is an AppError of the given type.
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// As wraps the standard library's errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Cause returns the wrapped cause, or nil if err is not an AppError or has none.
func Cause(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Cause
	}
	return nil
}

// RootCause unwraps err down to its deepest cause.
func RootCause(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

// GetType returns err's ErrorType, or ErrUnknown if err is nil or not an AppError.
func GetType(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrUnknown
}
