// Package apperr defines the error kinds surfaced by the auth gate and the
// session store, and how each maps onto an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindConflict          Kind = "conflict"
	KindAuth              Kind = "invalid_credentials"
	KindMissingCredential Kind = "missing_credential"
	KindInvalidCredential Kind = "invalid_credential"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind so callers can compare against the exported sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// HTTPStatus follows the public contract: duplicate registration and bad
// logins are 400, a missing bearer is 401, a rejected bearer is 403.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindConflict, KindAuth:
		return http.StatusBadRequest
	case KindMissingCredential:
		return http.StatusUnauthorized
	case KindInvalidCredential:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is; they carry no message so any error of the kind matches.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInternal          = &Error{Kind: KindInternal}
)

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func MissingCredential(message string) *Error {
	return &Error{Kind: KindMissingCredential, Message: message}
}

func InvalidCredential(message string, cause error) *Error {
	return &Error{Kind: KindInvalidCredential, Message: message, Cause: cause}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return Internal("Server error", err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}
