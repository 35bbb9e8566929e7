// internal/common/apperrors/errors.go
// Typed application errors with stable machine-readable reason codes

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInternal
)

// Error is the error type services raise. Reason is a stable code the
// client can switch on; Message is human-readable.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a status code
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest creates a validation/input error
func BadRequest(reason, message string) *Error {
	return &Error{Kind: KindBadRequest, Reason: reason, Message: message}
}

// Unauthorized creates an authentication error
func Unauthorized(reason, message string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Message: message}
}

// Forbidden creates a permission error
func Forbidden(reason, message string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason, Message: message}
}

// NotFound creates a missing-entity error
func NotFound(reason, message string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for logging
// but never leaks to the client.
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Reason:  "internal_error",
		Message: "Something went wrong",
		Err:     err,
	}
}

// From returns err as an *Error, wrapping unknown errors as internal
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
