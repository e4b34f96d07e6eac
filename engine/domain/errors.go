package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	ErrMissingQuestion = errors.New("missing question")
	ErrNoDocuments     = errors.New("no documents")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrEmbedding       = errors.New("embedding failed: no data returned")
	// ErrMalformedOutput labels model output that is not a structured answer.
	// It is logged, never returned.
	ErrMalformedOutput = errors.New("malformed model output")
)

// ValidationError wraps a sentinel with the offending field.
type ValidationError struct {
	Field   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Wrapped)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Wrapped: wrapped}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
