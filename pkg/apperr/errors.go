// Package apperr defines the typed failures returned by the platform services.
//
// Every failure carries a Kind. Callers match on kinds with errors.Is against the
// exported sentinels, e.g. errors.Is(err, apperr.ErrCapacityExceeded).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindUnauthorized         Kind = "unauthorized"
	KindInvalidState         Kind = "invalid_state"
	KindDuplicateApplication Kind = "duplicate_application"
	KindAlreadySubmitted     Kind = "already_submitted"
	KindCapacityExceeded     Kind = "capacity_exceeded"
	KindAlreadyDecided       Kind = "already_decided"
	KindNotFound             Kind = "not_found"
	KindValidation           Kind = "validation_error"
	KindInternal             Kind = "internal"
)

// Error is the concrete error type for every Kind.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. The message is ignored,
// so the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrInvalidState         = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrDuplicateApplication = &Error{Kind: KindDuplicateApplication, Message: "duplicate application"}
	ErrAlreadySubmitted     = &Error{Kind: KindAlreadySubmitted, Message: "already submitted"}
	ErrCapacityExceeded     = &Error{Kind: KindCapacityExceeded, Message: "capacity exceeded"}
	ErrAlreadyDecided       = &Error{Kind: KindAlreadyDecided, Message: "already decided"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation           = &Error{Kind: KindValidation, Message: "validation error"}
	ErrInternal             = &Error{Kind: KindInternal, Message: "internal error"}
)

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func InvalidState(message string) *Error { return New(KindInvalidState, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }

// Validation returns a validation error with optional per-field messages.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Internal wraps an infrastructure failure.
func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the response status used by the HTTP handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidState, KindDuplicateApplication, KindAlreadySubmitted,
		KindCapacityExceeded, KindAlreadyDecided:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients. Internal
// failures never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

// FieldsOf returns per-field validation messages, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
