package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConnection         = errors.New("connection error")
	ErrBackend            = errors.New("backend error")
	ErrAuthRequired       = errors.New("authentication required")
	ErrSessionExpired     = errors.New("session expired")
	ErrClientNotValidated = errors.New("application is not validated")
	ErrConflict           = errors.New("cart was modified concurrently")
)

// A BackendError is a non-2xx answer carrying the backend's message.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend answered %d", e.Status)
	}
	return e.Message
}

func (e *BackendError) Unwrap() error {
	return ErrBackend
}

type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", ErrConnection, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// A ValidationError names the required fields that were left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing %v", ErrValidation, e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RequireFields returns a [*ValidationError] for every empty value in
// fields, nil when all are set.
func RequireFields(fields map[string]string) error {
	var missing []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Fields: missing}
}
