package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes of the category error taxonomy
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "CONFLICT"
	CodeNetwork    = "NETWORK_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// FieldError is a single per-field validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
	kind    string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy class of the error (validation, conflict, network, not found).
// Errors built with NewDomainError have a kind equal to their code.
func (e *DomainError) Kind() string {
	if e.kind == "" {
		return e.Code
	}
	return e.kind
}

// Is matches errors of the same code, or of the same taxonomy kind when the
// target is one of the taxonomy sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return t.isSentinel() && e.Kind() == t.Code
}

func (e *DomainError) isSentinel() bool {
	switch e {
	case ErrValidation, ErrConflict, ErrNetwork, ErrNotFound:
		return true
	}
	return false
}

// WithCode returns a copy of the error under a more specific code; the taxonomy kind is kept
func (e *DomainError) WithCode(code string) *DomainError {
	c := *e
	c.kind = e.Kind()
	c.Code = code
	return &c
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports client-correctable input problems, one entry per field
func NewValidationError(details ...FieldError) *DomainError {
	msg := "Validation failed"
	if len(details) > 0 {
		parts := make([]string, 0, len(details))
		for _, d := range details {
			parts = append(parts, d.Field+": "+d.Message)
		}
		msg = strings.Join(parts, "; ")
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: msg,
		Details: details,
		kind:    CodeValidation,
	}
}

// NewConflictError reports an operation blocked by the current state of related data.
// The reason is meant to be shown to the user as is.
func NewConflictError(code, reason string) *DomainError {
	if code == "" {
		code = CodeConflict
	}
	return &DomainError{
		Code:    code,
		Message: reason,
		kind:    CodeConflict,
	}
}

// NewNetworkError wraps a failed call to a backing store or remote service
func NewNetworkError(op string, err error) *DomainError {
	return &DomainError{
		Code:    CodeNetwork,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
		kind:    CodeNetwork,
	}
}

// NewNotFoundError reports a reference to an entity that no longer exists
func NewNotFoundError(resource string, id any) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
		kind:    CodeNotFound,
	}
}

// Taxonomy sentinels, for use with errors.Is
var (
	ErrValidation = NewDomainError(CodeValidation, "Validation failed")
	ErrConflict   = NewDomainError(CodeConflict, "Operation conflicts with existing data")
	ErrNetwork    = NewDomainError(CodeNetwork, "Backing service unavailable")
	ErrNotFound   = NewDomainError(CodeNotFound, "Resource not found")
)

// Common domain errors
var (
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = &DomainError{Code: "CONCURRENCY_CONFLICT", Message: "Resource was modified by another process", kind: CodeConflict}
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
