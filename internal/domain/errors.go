package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure categories the service exposes to
// clients. Every error that crosses the dispatch boundary is mapped to one of
// these; raw error chains never leave the process.
type ErrorKind string

const (
	ErrInvalidRequest    ErrorKind = "invalid-request"
	ErrUnsupportedFormat ErrorKind = "unsupported-format"
	ErrUnknownKind       ErrorKind = "unknown-kind"
	ErrInvalidPath       ErrorKind = "invalid-path"
	ErrPayloadTooLarge   ErrorKind = "payload-too-large"
	ErrRateLimited       ErrorKind = "rate-limited"
	ErrDependencyMissing ErrorKind = "dependency-missing"
	ErrConverterFailed   ErrorKind = "converter-failed"
	ErrTimeout           ErrorKind = "timeout"
	ErrResourceExhausted ErrorKind = "resource-exhausted"
	ErrNotFound          ErrorKind = "not-found"
)

// HTTPStatus maps the kind onto the response status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrInvalidRequest, ErrUnsupportedFormat, ErrUnknownKind, ErrInvalidPath:
		return http.StatusBadRequest
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrDependencyMissing:
		return http.StatusServiceUnavailable
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error carries an ErrorKind together with a short client-safe detail string.
type Error struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a client-visible error of the given kind.
func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError attaches an internal cause that is logged but never surfaced.
func WrapError(kind ErrorKind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// KindOf extracts the ErrorKind from err. Unknown errors are reported as
// converter-failed so that internal details stay internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrConverterFailed
}

// DetailOf returns the client-safe detail for err.
func DetailOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	return "conversion failed"
}
