package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrValidation      = errors.New("validation failed")
	ErrNoSourceBudgets = errors.New("no budgets found in previous period")
	ErrNotFound        = errors.New("not found")
	ErrStorage         = errors.New("storage failure")
	ErrInUse           = errors.New("still referenced by transactions")
)

// ValidationError reports a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps a failure returned by the persistence layer. It matches
// ErrStorage and unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// WrapStorage returns nil for a nil err, and a *StorageError otherwise.
// ErrNotFound passes through unchanged so callers can tell "no row" apart.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
