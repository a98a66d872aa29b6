package session

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession     = errors.New("no shopping session found")
	ErrForbidden     = errors.New("forbidden")
	ErrItemNotFound  = errors.New("shopping item not found")
	// ErrSessionExists is returned by CreateSession when a concurrent create
	// for the same user committed first.
	ErrSessionExists = errors.New("user already has a shopping session")
)

// ValidationError reports malformed input. Field uses the request's dotted
// path, e.g. "grocery_list_ids.1".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
