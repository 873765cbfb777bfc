package store

import "fmt"

// StorageError represents a failed database operation.
type StorageError struct {
	// Operation is the operation that failed (e.g. "save_policy").
	Operation string

	// Cause is the underlying database error.
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Operation, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates a record does not exist.
type NotFoundError struct {
	// Kind is the record kind ("policy" or "decision").
	Kind string

	// ID is the requested record ID.
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
