// Package apperr is the error taxonomy shared by the workflow core and the API.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrIllegalTransition   = errors.New("illegal transition")
	ErrValidationFailed    = errors.New("validation failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
)

// Error carries one of the sentinel kinds plus a user-facing message.
type Error struct {
	Kind    error
	Message string
	Field   string // set for validation failures on a single input field
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func Denied(format string, args ...any) *Error {
	return &Error{Kind: ErrAuthorizationDenied, Message: fmt.Sprintf(format, args...)}
}

func Illegal(format string, args ...any) *Error {
	return &Error{Kind: ErrIllegalTransition, Message: fmt.Sprintf(format, args...)}
}

func Invalid(field, format string, args ...any) *Error {
	return &Error{Kind: ErrValidationFailed, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) *Error {
	return &Error{Kind: ErrNotFound, Message: resource + " not found"}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a store failure; the operation may be retried as-is.
func Unavailable(op string, cause error) *Error {
	return &Error{Kind: ErrStoreUnavailable, Message: op + " failed, please retry", Cause: cause}
}

// Retryable reports whether re-issuing the same command may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrConflict)
}

// Message returns the user-facing message of err, or a generic one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
