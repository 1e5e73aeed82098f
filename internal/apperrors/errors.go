package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced to a caller wraps exactly one of these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("conflict")
	ErrPermission     = errors.New("permission denied")
	ErrAuthentication = errors.New("authentication required")
)

// Error carries a user-facing message on top of one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(format string, args ...interface{}) error {
	return newf(ErrValidation, format, args...)
}

// NotFound reports an unknown id, email or code.
func NotFound(format string, args ...interface{}) error {
	return newf(ErrNotFound, format, args...)
}

// Conflict reports a duplicate key, an already finalized payment or a full team.
func Conflict(format string, args ...interface{}) error {
	return newf(ErrConflict, format, args...)
}

// Permission reports a capability mismatch.
func Permission(format string, args ...interface{}) error {
	return newf(ErrPermission, format, args...)
}

// Authentication reports a missing or invalid credential.
func Authentication(format string, args ...interface{}) error {
	return newf(ErrAuthentication, format, args...)
}

// Message returns the user-facing message of err, or fallback when err is not
// one of ours.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return fallback
}
