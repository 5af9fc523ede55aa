package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by status code and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	// ErrOverflow reports an update that would push a stored counter past int64.
	ErrOverflow = &Error{
		Code:    http.StatusBadRequest,
		Message: "value out of range",
	}

	// ErrBusy reports lock contention in the database (SQLITE_BUSY / SQLITE_LOCKED).
	// It is transient: callers retry the whole unit of work.
	ErrBusy = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "database busy",
	}
)

// IsBusy reports whether err is a transient contention error.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
