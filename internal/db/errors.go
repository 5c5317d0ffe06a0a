package db

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// user. The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("not found")

// ValidationError reports a field that failed input validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
