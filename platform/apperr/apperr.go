// Package apperr is the error type services return so handlers and the
// billing consumer can decide status codes and retry policy without
// inspecting domain sentinels.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindBadRequest
	KindInternal
	// KindPaymentRequired: the balance cannot cover the action.
	KindPaymentRequired
	// KindUnavailable: transient, the caller may retry.
	KindUnavailable
)

var statusByKind = map[Kind]int{
	KindNotFound:        http.StatusNotFound,
	KindValidation:      http.StatusBadRequest,
	KindBadRequest:      http.StatusBadRequest,
	KindConflict:        http.StatusConflict,
	KindForbidden:       http.StatusForbidden,
	KindInternal:        http.StatusInternalServerError,
	KindPaymentRequired: http.StatusPaymentRequired,
	KindUnavailable:     http.StatusServiceUnavailable,
}

// Error carries a client-safe Message and optional Details; Err keeps the
// cause reachable through errors.Is and errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails sets the response details and returns e.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Validation(message string) *Error      { return New(KindValidation, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func BadRequest(message string) *Error      { return New(KindBadRequest, message) }
func PaymentRequired(message string) *Error { return New(KindPaymentRequired, message) }
func Unavailable(message string) *Error     { return New(KindUnavailable, message) }

// GetKind returns the kind of the outermost *Error in err's chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
