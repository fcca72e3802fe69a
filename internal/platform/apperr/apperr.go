// Package apperr holds the error taxonomy shared by every handler: a small set
// of sentinel kinds plus an Error type carrying a client-facing message.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "application error"
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error        { return New(ErrNotFound, message) }
func Forbidden(message string) *Error       { return New(ErrForbidden, message) }
func InvalidInput(message string) *Error    { return New(ErrInvalidInput, message) }
func Unauthenticated(message string) *Error { return New(ErrUnauthenticated, message) }
func Conflict(message string) *Error        { return New(ErrConflict, message) }

// Status maps err onto an HTTP status code. Anything outside the taxonomy is a 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a client. Internal errors are masked.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "Server error"
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
