package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindInsufficientPayment
)

// Error is a classified business error. Anything that is not an *Error is
// treated as an unclassified server error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindInsufficientStock:
		return "insufficient stock"
	case KindInsufficientPayment:
		return "insufficient payment"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	}
	return "invalid request"
}

// Is matches sentinels (no message) by kind, so a descriptive
// InsufficientStock error still satisfies errors.Is(err, ErrInsufficientStock).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrInsufficientPayment = &Error{Kind: KindInsufficientPayment}
)

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...interface{}) error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func InsufficientPayment(format string, args ...interface{}) error {
	return &Error{Kind: KindInsufficientPayment, Message: fmt.Sprintf(format, args...)}
}

// StatusCode maps an error to its HTTP status. Unclassified errors are 500.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 500
	}
	switch e.Kind {
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	}
	return 400
}
