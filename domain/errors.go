package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a referenced board, list or card does not
// exist. Handlers translate it to a 404 response.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with the entity kind and id that failed
// to resolve. It matches ErrNotFound under errors.Is.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError indicates malformed input rejected before any state
// change. Handlers translate it to a 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
