package intake

import (
	"fmt"
	"strings"

	"chitieu/internal/core"
)

// Error codes reported per field.
const (
	CodeInvalidAmount   = "InvalidAmount"
	CodeInvalidCategory = "InvalidCategory"
)

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	err     error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the domain sentinel, e.g. core.ErrInvalidAmount.
func (e FieldError) Unwrap() error { return e.err }

// ValidationError lists every rejected field of one submission.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the field errors to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	out := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f
	}
	return out
}

// Has reports whether any field failed with code.
func (e *ValidationError) Has(code string) bool {
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Field returns the first error reported for field.
func (e *ValidationError) Field(field string) (FieldError, bool) {
	for _, f := range e.Fields {
		if f.Field == field {
			return f, true
		}
	}
	return FieldError{}, false
}

func fieldErrorFor(tag, field string) FieldError {
	switch tag {
	case "amount":
		return FieldError{Field: field, Code: CodeInvalidAmount,
			Message: "amount must be a number greater than zero", err: core.ErrInvalidAmount}
	case "category":
		return FieldError{Field: field, Code: CodeInvalidCategory,
			Message: "choose one of the known categories", err: core.ErrInvalidCategory}
	default:
		return FieldError{Field: field, Code: tag, Message: "invalid value"}
	}
}
