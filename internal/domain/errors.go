package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed request before any provider call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProviderError indicates the LLM backend was unreachable or returned a
// malformed or error response. The orchestrator does not retry; retry,
// if any, is a caller decision.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// GuardrailError indicates the turn counter bound was reached and the
// loop force-terminated. Fatal for the turn, never surfaced as a panic.
type GuardrailError struct {
	MaxTurns int
}

func (e *GuardrailError) Error() string {
	return fmt.Sprintf("turn limit of %d exceeded", e.MaxTurns)
}

// IsGuardrailError reports whether err is a GuardrailError.
func IsGuardrailError(err error) bool {
	var ge *GuardrailError
	return errors.As(err, &ge)
}
