package transform

import (
	"errors"
	"fmt"
	"strings"
)

// Error kind tags written to dead-letter records.
const (
	KindMapping    = "MappingError"
	KindValidation = "ValidationError"
	KindUnexpected = "UnexpectedError"
)

// MappingError reports a missing identity field. It is fatal to one record only.
type MappingError struct {
	Platform string
	Message  string
}

func (e *MappingError) Error() string { return e.Message }

func missing(platform, message string) error {
	return &MappingError{Platform: platform, Message: message}
}

// FieldViolation is one failed constraint on a unified record field.
type FieldViolation struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
	Value any    `json:"value"`
}

// ValidationError carries every constraint the normalized record violated.
type ValidationError struct {
	Platform   string
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Param != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", v.Field, v.Tag, v.Param))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", v.Field, v.Tag))
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

// UnexpectedError wraps any other failure, including recovered panics.
type UnexpectedError struct {
	Platform string
	Err      error
}

func (e *UnexpectedError) Error() string { return e.Err.Error() }

func (e *UnexpectedError) Unwrap() error { return e.Err }

// Kind classifies err into one of the dead-letter kind tags.
func Kind(err error) string {
	var mapping *MappingError
	if errors.As(err, &mapping) {
		return KindMapping
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	return KindUnexpected
}

func recovered(platform string, r any) error {
	if err, ok := r.(error); ok {
		return &UnexpectedError{Platform: platform, Err: fmt.Errorf("panic: %w", err)}
	}
	return &UnexpectedError{Platform: platform, Err: fmt.Errorf("panic: %v", r)}
}
