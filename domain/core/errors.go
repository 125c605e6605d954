package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound = errors.New("resource not found")

	// Import errors
	ErrNoDataRows        = errors.New("sheet has no data rows")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrDuplicate         = errors.New("duplicate identifier")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewDuplicateError(field, value string) error {
	return fmt.Errorf("%w: %s %q already exists", ErrDuplicate, field, value)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrNoDataRows)
}
