package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound the addressed entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized no valid session was presented
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden the session user lacks the required role
	ErrForbidden = errors.New("forbidden")
)

// ValidationError a malformed create input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError a persistence failure. The wrapped error is logged, never shown to clients.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore wraps err as a StoreError for op, keeping a stack trace. Nil stays nil.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: errors.WithStack(err)}
}

// NotFoundf returns ErrNotFound annotated with context
func NotFoundf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}
