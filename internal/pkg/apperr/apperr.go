// Package apperr defines the error kinds surfaced to API callers.
//
// Services return *Error for recognized outcomes (bad input, missing rows,
// capability failures). Anything else reaching the HTTP layer is treated as
// an infrastructure failure and rendered as a 500.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInfra Kind = iota
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindNotFound
	KindConflict
	KindCapability
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindCapability:
		return "capability_failure"
	default:
		return "infra_failure"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	// Status overrides the default HTTP status of Kind when non-zero.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code the error should be rendered with.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindCapability:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Unauthorized() *Error { return &Error{Kind: KindUnauthorized, Msg: "Unauthorized"} }

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "Forbidden"
	}
	return &Error{Kind: KindForbidden, Msg: msg}
}

func BadRequest(msg string) *Error { return &Error{Kind: KindBadRequest, Msg: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Msg: msg} }

// Capability reports an external agent failure. Statuses outside 400-599 render as 500.
func Capability(msg string, status int) *Error {
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: KindCapability, Msg: msg, Status: status}
}

func Infra(err error) *Error { return &Error{Kind: KindInfra, Err: err} }

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

// StatusOf maps any error to an HTTP status; untyped errors are 500.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
