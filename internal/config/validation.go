package config

import (
	"fmt"
	"strings"
)

// ValidationError is one field-scoped configuration problem.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements error.
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field %q: %s", ve.Field, ve.Message)
}

// ValidationErrors collects every problem found by Config.Validate.
type ValidationErrors []ValidationError

// Error implements error.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	messages := make([]string, len(ve))
	for i, e := range ve {
		messages[i] = e.Error()
	}
	return fmt.Sprintf("config validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors reports whether any problem was collected.
func (ve ValidationErrors) HasErrors() bool { return len(ve) > 0 }

// Add appends a new ValidationError.
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{Field: field, Value: val, Message: message})
}

// ValidateOneOf checks that value is a member of allowed.
func ValidateOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))}
}
