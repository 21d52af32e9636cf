package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrStoreFailure    = errors.New("store failure")
	ErrEmailDispatch   = errors.New("confirmation email could not be sent")
	ErrUnknownLocation = errors.New("unknown location")
	ErrInvalidQuery    = errors.New("invalid search query")
)

// ValidationError carries one message per rejected form field.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field. A later message for the same field wins.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

// Empty reports whether no field was rejected.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}
