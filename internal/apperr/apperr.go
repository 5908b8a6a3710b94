// Package apperr implements the service's closed error-kind taxonomy: a
// single tagged sum type instead of string-matching against error messages,
// with one central mapper at the HTTP edge.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the fixed set of error categories the service produces.
// Every error that crosses a service boundary is one of these.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindIdempotencyConflict Kind = "idempotency_conflict"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindPaymentProcessor   Kind = "payment_processor"
	KindBackpressure       Kind = "backpressure"
	KindInternal           Kind = "internal"
)

// FieldError names a single invalid request field and why.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the one error type every layer of this service returns. It never
// wraps an error.Error() string for classification — callers inspect Kind.
type Error struct {
	Kind    Kind
	Message string
	Code    string // PSP-defined code, present only for KindPaymentProcessor
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code=%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Of reports the Kind of err and true when err is, or wraps, an *Error; for
// any other error, or nil, it returns an empty Kind and false.
func Of(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(fields []FieldError, format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Fields: fields}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func IdempotencyConflict(format string, args ...any) error {
	return &Error{Kind: KindIdempotencyConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// PaymentProcessor wraps a PSP-originated failure. code and message are the
// PSP's own, safe-to-expose fields.
func PaymentProcessor(code, message string, cause error) error {
	return &Error{Kind: KindPaymentProcessor, Message: message, Code: code, cause: cause}
}

func Backpressure(format string, args ...any) error {
	return &Error{Kind: KindBackpressure, Message: fmt.Sprintf(format, args...)}
}

func Internal(cause error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// PSPDetail extracts the PSP-safe code/message pair for persisting a failed
// charge or refund row. Non-PaymentProcessor errors fall back to a generic
// code so the failure is still recorded.
func PSPDetail(err error) (code, message string) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind == KindPaymentProcessor {
		return appErr.Code, appErr.Message
	}
	return "psp_error", err.Error()
}
