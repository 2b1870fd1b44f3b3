package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrEquipmentUnavailable  = errors.New("equipment is not available")
	ErrEquipmentCheckedOut   = errors.New("equipment is checked out")
	ErrOrderAlreadyCompleted = errors.New("order already completed")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

// ValidationError collects field-level problems with a request.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for f := range e.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.FieldErrors[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	if _, exists := e.FieldErrors[field]; !exists {
		e.FieldErrors[field] = msg
	}
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

// orNil keeps a typed nil from escaping as a non-nil error.
func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
