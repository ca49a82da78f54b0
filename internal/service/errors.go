// Package service provides business logic for the support console.
package service

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups that matched nothing. Callers branch on it;
// it never carries storage detail.
var ErrNotFound = errors.New("not found")

// ErrValidation marks client input rejected before any network or store
// call was made.
var ErrValidation = errors.New("invalid input")

// ValidationError is a user-facing rejection of a request payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets callers match any validation failure with errors.Is(err,
// ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
