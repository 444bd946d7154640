/*
errors.go - Centralized error types for the worktime engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages declare their validation failures as ValidationError
  values and callers match them with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - User-correctable business rule violations,
     always attached to a field and a stable machine-readable code
  2. Not-found errors - Referenced rows that do not exist
  3. Store errors - Database-level failures, wrapped with context

USAGE:
  if errors.Is(err, timesheet.ErrNoLeaveDates) {
      // the requested span has no workable day
  }

  var verr *generic.ValidationError
  if errors.As(err, &verr) {
      fmt.Println(verr.Field, verr.Code)
  }

SEE ALSO:
  - timesheet/errors.go: Domain validation errors
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrConcurrentModification is returned when a write lost a race that
	// the database detected through a constraint.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError is a field-level, user-correctable failure.
// Two ValidationErrors are considered the same error when their codes match,
// so a sentinel declared once can be matched against a copy that carries a
// more specific message.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Is matches another ValidationError by code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *ValidationError) WithMessage(format string, args ...any) *ValidationError {
	return &ValidationError{Field: e.Field, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the kind and id of a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntityNotFound
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
