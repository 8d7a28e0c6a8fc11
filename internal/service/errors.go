package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicate         = errors.New("duplicate supply point")
	ErrConflict          = errors.New("contract was modified concurrently")
	ErrTransitionPending = errors.New("transition pending commission assignment")
	ErrPersistence       = errors.New("persistence failure")
)

// ValidationError names the offending field. It is always raised before any
// write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateError reports a supply point already used by another
// non-superseded contract of the same customer and commodity.
type DuplicateError struct {
	Field      string // POD or PDR
	Value      string
	ContractID uuid.UUID // existing contract, nil when only the database knew it
}

func (e *DuplicateError) Error() string {
	if e.ContractID == uuid.Nil {
		return fmt.Sprintf("%s %s is already used by another contract of this customer", e.Field, e.Value)
	}
	return fmt.Sprintf("%s %s is already used by contract %s", e.Field, e.Value, e.ContractID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// PersistenceError wraps a failed storage step. Retryable is set when the
// step timed out or was cancelled and may succeed if repeated unchanged.
type PersistenceError struct {
	Op         string
	ContractID uuid.UUID
	Retryable  bool
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.ContractID == uuid.Nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed for contract %s: %v", e.Op, e.ContractID, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func notFound(entity string, id uuid.UUID) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}
