// Package errors carries the typed error every service returns and the
// table that maps each code onto an HTTP response.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeExternal      Code = "EXTERNAL_ERROR"

	// Marketplace business rule violations.
	CodeInvalidState      Code = "INVALID_STATE"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidPrice      Code = "INVALID_PRICE"
	CodeNotBargainable    Code = "NOT_BARGAINABLE"
	CodeDuplicateActive   Code = "DUPLICATE_ACTIVE"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeMultiSeller       Code = "MULTI_SELLER"
	CodeExpired           Code = "EXPIRED"
	CodeWindowExpired     Code = "WINDOW_EXPIRED"
)

// Metadata is how a code renders over HTTP. Retryable codes hide the error
// message behind PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	withDetails = true
	noDetails   = false
)

func final(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details}
}

func transient(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: true, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    final(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:  final(http.StatusUnauthorized, "authentication required", noDetails),
	CodeForbidden:     final(http.StatusForbidden, "access denied", noDetails),
	CodeNotFound:      final(http.StatusNotFound, "resource not found", noDetails),
	CodeConflict:      final(http.StatusConflict, "conflict detected", noDetails),
	CodeStateConflict: final(http.StatusConflict, "resource was modified concurrently", withDetails),
	CodeIdempotency:   final(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:     final(http.StatusTooManyRequests, "rate limit exceeded", noDetails),

	CodeInvalidState:      final(http.StatusUnprocessableEntity, "operation not allowed in current state", withDetails),
	CodeInvalidTransition: final(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeInvalidPrice:      final(http.StatusUnprocessableEntity, "price outside allowed bounds", withDetails),
	CodeNotBargainable:    final(http.StatusUnprocessableEntity, "product does not accept offers", noDetails),
	CodeDuplicateActive:   final(http.StatusConflict, "an active offer already exists", withDetails),
	CodeUnavailable:       final(http.StatusUnprocessableEntity, "product unavailable", withDetails),
	CodeInsufficientStock: final(http.StatusConflict, "insufficient stock", withDetails),
	CodeMultiSeller:       final(http.StatusUnprocessableEntity, "order items must belong to a single seller", noDetails),
	CodeExpired:           final(http.StatusGone, "offer expired", noDetails),
	CodeWindowExpired:     final(http.StatusUnprocessableEntity, "time window elapsed", noDetails),

	CodeInternal:   transient(http.StatusInternalServerError, "internal server error", noDetails),
	CodeDependency: transient(http.StatusServiceUnavailable, "dependency unavailable", withDetails),
	CodeExternal:   transient(http.StatusBadGateway, "upstream provider error", noDetails),
}

// MetadataFor falls back to CodeInternal for codes missing from the table.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure. The zero value and nil pointer read as internal.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err, which stays reachable through
// errors.Is and errors.As.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil || e.code == "" {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// Error renders "CODE: message", followed by the cause when there is one.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	s := string(e.Code()) + ": " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
