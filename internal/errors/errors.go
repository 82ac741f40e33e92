package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrInvalidInput is returned when a query or its parameters fail validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrItemNotFound is returned when an item is not part of the current snapshot
	ErrItemNotFound = errors.New("item not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrSourceUnavailable is returned when the catalog source cannot be read
	ErrSourceUnavailable = errors.New("catalog source unavailable")

	// ErrNoSnapshot is returned when no catalog snapshot has been published yet
	ErrNoSnapshot = errors.New("no catalog snapshot loaded")
)

// ItemNotFoundError represents an item not found error with context
type ItemNotFoundError struct {
	ItemID  string
	Version uint64
}

func (e *ItemNotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("item with ID '%s' not found in snapshot v%d", e.ItemID, e.Version)
	}
	return fmt.Sprintf("item with ID '%s' not found", e.ItemID)
}

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// NewItemNotFoundError creates a new ItemNotFoundError
func NewItemNotFoundError(itemID string, version ...uint64) *ItemNotFoundError {
	err := &ItemNotFoundError{ItemID: itemID}
	if len(version) > 0 {
		err.Version = version[0]
	}
	return err
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SourceError wraps a failure of a catalog source
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("catalog source '%s' failed: %v", e.Source, e.Err)
}

func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError
func NewSourceError(source string, err error) *SourceError {
	return &SourceError{Source: source, Err: err}
}
