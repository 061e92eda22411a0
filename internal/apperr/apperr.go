package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure for the HTTP boundary.
type Kind int

const (
	KindValidation   Kind = iota // missing/malformed input, state not ready
	KindNotFound                 // unknown card/session/request id
	KindConflict                 // operation illegal for current status
	KindUnauthorized             // wrong OTP code
	KindForbidden                // identity mismatch, blocked card, not owner
	KindInternal                 // storage/transaction failure
)

type Error struct {
	Kind Kind
	Code string // stable machine code, e.g. "otp_expired"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func Newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Validation(code, msg string) *Error   { return New(KindValidation, code, msg) }
func NotFound(code, msg string) *Error     { return New(KindNotFound, code, msg) }
func Conflict(code, msg string) *Error     { return New(KindConflict, code, msg) }
func Unauthorized(code, msg string) *Error { return New(KindUnauthorized, code, msg) }
func Forbidden(code, msg string) *Error    { return New(KindForbidden, code, msg) }

// Internal wraps a storage or transaction failure. The wrapped error is
// logged at the boundary and never leaks to the caller.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Msg: "internal error", Err: err}
}

// From returns err as an *Error, wrapping anything unclassified as internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// HTTPStatus maps a kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
