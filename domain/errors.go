package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor lacks the rights for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyExists indicates an insert collided with a persisted row.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidGrouping indicates task creation was requested without a
	// valid grouping context.
	ErrInvalidGrouping = errors.New("exactly one grouping context is required")
)

// FieldError is one rejected attribute with its reason.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrors collects field-scoped rejection reasons for a primary
// entity. A non-empty collection blocks the whole operation.
type ValidationErrors []FieldError

func (v *ValidationErrors) Add(field, reason string) {
	*v = append(*v, FieldError{Field: field, Reason: reason})
}

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Reason
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
