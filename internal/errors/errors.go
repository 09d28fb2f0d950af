// LOCATION: internal/errors/errors.go
//
// Consolidated error definitions for the entire project:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities and constructors

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound        = errors.New("not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrArchiveNotFound = errors.New("archive not found")

	// Validation errors
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidMetric = errors.New("invalid metric")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")

	// Already exists errors
	ErrAlreadyExists = errors.New("already exists")

	// Conflict errors
	ErrConcurrentModification = errors.New("concurrent modification detected (version mismatch)")

	// Storage errors
	ErrStorage   = errors.New("storage error")
	ErrCorrupted = errors.New("corrupted snapshot")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrArchiveNotFound)
}

// IsAlreadyExists returns true if err is an already-exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidMetric) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsConflict returns true if err indicates the caller raced another writer
// and should retry against fresh state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsStorage returns true if err is a durable read/write failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrCorrupted)
}

// IsRetriable returns true if the error is potentially retriable.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrConcurrentModification)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// NewStorage creates a storage error wrapping the underlying cause.
func NewStorage(op string, cause error) error {
	return fmt.Errorf("%s: %v: %w", op, cause, ErrStorage)
}
