package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfigMissing        = errors.New("config_missing")
	ErrConfigMalformed      = errors.New("config_malformed")
	ErrConfigIncomplete     = errors.New("config_incomplete")
	ErrDirectoryUnavailable = errors.New("directory_unavailable")
	ErrMailerUnavailable    = errors.New("mailer_unavailable")
)

// IncompleteFieldError identifies exactly which required configuration
// field was absent or empty. Validation stops the run before any
// directory or transport work, so the message must name the field.
type IncompleteFieldError struct {
	Field string
}

func (e *IncompleteFieldError) Error() string {
	return fmt.Sprintf("config field %s: required and must be non-empty", e.Field)
}

func (e *IncompleteFieldError) Unwrap() error { return ErrConfigIncomplete }

func NewIncompleteFieldError(field string) error {
	return &IncompleteFieldError{Field: field}
}
