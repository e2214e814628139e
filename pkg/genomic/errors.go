package genomic

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned when an operation targets an id that
	// does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidField is returned when a field value is outside its closed
	// enumeration.
	ErrInvalidField = errors.New("invalid field")
)

// ValidationError reports a malformed or missing update payload.
type ValidationError struct {
	reason error
}

func NewValidationError(format string, args ...interface{}) ValidationError {
	return ValidationError{reason: fmt.Errorf(format, args...)}
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// NotFound wraps ErrRecordNotFound with the kind and id that were missing.
func NotFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrRecordNotFound)
}
