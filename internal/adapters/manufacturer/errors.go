package manufacturer

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases
var (
	// ErrCompanyNotFound indicates no company is registered under the given ID
	ErrCompanyNotFound = errors.New("company not found")

	// ErrInvalidCompanyID indicates a company ID could not be parsed
	ErrInvalidCompanyID = errors.New("invalid company ID")

	// ErrInvalidAppearance indicates an appearance code outside the 16-bit layout
	ErrInvalidAppearance = errors.New("invalid appearance value")

	// ErrRepositoryClosed indicates the repository has been closed
	ErrRepositoryClosed = errors.New("repository is closed")
)

// DatabaseError wraps database-specific errors with context
type DatabaseError struct {
	Op  string // Operation that failed (e.g., "lookup", "insert")
	Err error  // Underlying error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s failed: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// ValidationError wraps validation errors with the invalid value
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
