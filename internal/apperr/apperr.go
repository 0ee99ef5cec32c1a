// Package apperr is the error taxonomy shared by the services. Transport code maps
// a Kind to a status code; nothing below the router knows about HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindInsufficientStock
	KindInvalidSignature
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInsufficientStock:
		return "InsufficientStock"
	case KindInvalidSignature:
		return "InvalidSignature"
	default:
		return "Internal"
	}
}

// Error is a classified failure with a message that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	// Available is set only for KindInsufficientStock.
	Available int64
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrBadRequest        = &Error{Kind: KindBadRequest}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInvalidSignature  = &Error{Kind: KindInvalidSignature}
)

func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func InvalidSignature(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidSignature, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock always ends its message with "Available: N".
func InsufficientStock(productName string, available int64) *Error {
	msg := fmt.Sprintf("Insufficient stock. Available: %d", available)
	if productName != "" {
		msg = fmt.Sprintf("Insufficient stock for %s. Available: %d", productName, available)
	}
	return &Error{Kind: KindInsufficientStock, Message: msg, Available: available}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
