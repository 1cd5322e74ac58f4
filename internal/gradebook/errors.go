package gradebook

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrDuplicateEnrollment = errors.New("duplicate enrollment number")
	ErrMarkAboveMax        = errors.New("mark exceeds maximum")
)

// ValidationError carries one of the sentinel kinds above together with the
// offending value and, where it applies, the roster row it was found on.
type ValidationError struct {
	Kind   error
	Value  string
	Row    int
	Detail string
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrDuplicateEnrollment):
		return fmt.Sprintf("Enrollment number %q must be unique.", e.Value)
	case errors.Is(e.Kind, ErrMarkAboveMax):
		return fmt.Sprintf("Marks cannot exceed maximum (%s)", e.Value)
	case e.Detail != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	default:
		return e.Kind.Error()
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func configError(detail string) error {
	return &ValidationError{Kind: ErrInvalidConfig, Row: -1, Detail: detail}
}
