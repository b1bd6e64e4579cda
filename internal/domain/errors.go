package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the two failure kinds callers must tell apart.
// Match with errors.Is; the message is carried by *Error.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Error carries a human-readable message and wraps one of the sentinel kinds
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the sentinel kind to errors.Is
func (e *Error) Unwrap() error { return e.kind }

// NotFound reports an absent resource, e.g. NotFound("User", 42) -> "User not found with id: 42"
func NotFound(resource string, id interface{}) error {
	return NotFoundBy(resource, "id", id)
}

// NotFoundBy reports a resource absent under another key, e.g. "Stock not found with symbol: XYZ"
func NotFoundBy(resource, field string, value interface{}) error {
	return &Error{kind: ErrNotFound, msg: fmt.Sprintf("%s not found with %s: %v", resource, field, value)}
}

// InvalidOperation reports a rejected request with the reason shown to the caller
func InvalidOperation(reason string) error {
	return &Error{kind: ErrInvalidOperation, msg: reason}
}

// InvalidOperationf is InvalidOperation with formatting
func InvalidOperationf(format string, args ...interface{}) error {
	return InvalidOperation(fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidOperation reports whether err is an InvalidOperation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// InsufficientBalanceError is returned when a debit exceeds the balance.
// It matches ErrInvalidOperation.
type InsufficientBalanceError struct {
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string { return "Insufficient bank balance" }

// Unwrap makes the error match ErrInvalidOperation
func (e *InsufficientBalanceError) Unwrap() error { return ErrInvalidOperation }
