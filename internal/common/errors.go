// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound    = errors.New("not found")
	ErrIntegrity   = errors.New("store integrity violated")
	ErrBadCategory = errors.New("unknown category")

	// Exchange errors.
	ErrBadFormat = errors.New("malformed exchange data")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports every constraint a candidate record violated.
// Violations are collected, not short-circuited, so a caller can surface
// all of them at once.
type ValidationError struct {
	Category string
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Category, strings.Join(e.Messages, "; "))
}

// NewValidationError creates a validation error from collected messages.
func NewValidationError(category string, messages []string) error {
	return &ValidationError{Category: category, Messages: messages}
}

// NotFound wraps ErrNotFound with the missing identifier.
func NotFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	// Validation and lookup failures are caller errors; retrying cannot fix them.
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadCategory) {
		return false
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	return true
}
