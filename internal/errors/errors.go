// Package errors defines the coded errors services return to the API layer.
//
// Services return *Error values built by Validation, NotFound, Conflict and
// Internal. The HTTP layer maps the Code to a status; callers match a class of
// error with errors.Is against the Err sentinels, which compare by code only.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// As is errors.As, re-exported so callers importing this package under its
// usual alias do not also need the standard library package.
var As = errors.As

// Code is the machine-readable error code sent in API error envelopes.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeValidation:   http.StatusBadRequest,
	CodeNotFound:     http.StatusNotFound,
	CodeConflict:     http.StatusConflict,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeRateLimited:  http.StatusTooManyRequests,
}

// HTTPStatus maps the code to a response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries a code, a client-safe message and optional structured details.
// The cause is kept for logging and errors.Is chains but never serialized.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus returns the status for e's code.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// Sentinels for errors.Is.
var (
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict   = &Error{Code: CodeConflict, Message: "conflict"}
	ErrForbidden  = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInternal   = &Error{Code: CodeInternal, Message: "internal error"}
)

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// ValidationWithDetails is used for request validation where details maps
// field names to their failures.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Conflict reports a request that lost to concurrent state, such as a stats
// update that exhausted its retries or a duplicate follow.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Forbidden reports an authenticated caller acting on something they do not own.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Internal wraps a storage or infrastructure failure. msg is what the client
// sees; err only reaches the logs.
func Internal(err error, msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: err}
}

// IsValidation reports whether err carries the VALIDATION code.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
