// Package apperr defines the typed errors services return. Each error
// carries a Kind, and the HTTP layer maps Kinds to status codes, so
// repositories and services never reference net/http semantics directly.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an error for transport mapping.
type Kind int

const (
	// KindUnknown is the zero Kind for errors created outside this package.
	KindUnknown Kind = iota
	// KindNotFound marks a missing resource.
	KindNotFound
	// KindValidation marks invalid input or a rejected state transition.
	KindValidation
	// KindConflict marks a collision with existing state.
	KindConflict
	// KindUnauthorized marks missing or failed authentication.
	KindUnauthorized
	// KindBadRequest marks a malformed request.
	KindBadRequest
	// KindInternal marks an unexpected failure.
	KindInternal
)

// Error is a typed domain error. Op names the failing operation in
// "module.layer.operation" form; Details, when set, is serialized into the
// error response body.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error's Kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp attaches the failing operation name.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches response payload details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Validation builds a KindValidation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// Conflict builds a KindConflict error.
func Conflict(message string) *Error { return New(KindConflict, message) }

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// BadRequest builds a KindBadRequest error.
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// Internal builds a KindInternal error.
func Internal(message string) *Error { return New(KindInternal, message) }

// GetKind reports the Kind of err, unwrapping as needed. Errors created
// outside this package report KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
