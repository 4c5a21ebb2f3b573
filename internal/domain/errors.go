package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidSide          = errors.New("invalid_side")
	ErrUnknownInstrument    = errors.New("unknown_instrument")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrAccountAlreadyExists = errors.New("account_already_exists")
	ErrPersistence          = errors.New("persistence_failure")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError reports that the persistence layer could not record a
// mutation. It matches ErrPersistence and unwraps to the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence_failure: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// IsRejection reports whether err is one of the request rejections that
// leave every store untouched and can be retried after adjusting input.
func IsRejection(err error) bool {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidSide),
		errors.Is(err, ErrUnknownInstrument),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientHoldings),
		errors.Is(err, ErrAccountNotFound):
		return true
	}
	return false
}
