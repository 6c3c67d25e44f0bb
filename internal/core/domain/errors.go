// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds callers match with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrCommitFailed     = errors.New("sale commit failed")
	ErrDuplicateRequest = errors.New("duplicate request in progress")
)

// ValidationError reports malformed input. It is always raised before any write.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports a missing product or sale
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CommitError is the single error surfaced for a rolled back sale commit.
// The cause is kept for logging only.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	if e.Err == nil {
		return ErrCommitFailed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrCommitFailed.Error(), e.Err)
}

func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailed
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
