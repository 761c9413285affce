package shared

import "errors"

// ErrorKind classifies a domain error independently of its specific code
type ErrorKind string

const (
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindInvalidState  ErrorKind = "INVALID_STATE"
	KindInvalidInput  ErrorKind = "INVALID_INPUT"
	KindConflict      ErrorKind = "CONCURRENCY_CONFLICT"
	KindAlreadyExists ErrorKind = "ALREADY_EXISTS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a domain error of the same kind.
// A target without a kind falls back to code equality.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != "" && e.Kind != "" {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error. The kind is derived from the
// code when the code is one of the kind names.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    ErrorKind(code),
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a NotFound error with a specific code
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewInvalidStateError creates an InvalidState error with a specific code
func NewInvalidStateError(code, message string) *DomainError {
	return &DomainError{Kind: KindInvalidState, Code: code, Message: message}
}

// NewInvalidInputError creates an InvalidInput error with a specific code
func NewInvalidInputError(code, message string) *DomainError {
	return &DomainError{Kind: KindInvalidInput, Code: code, Message: message}
}

// NewConflictError creates a Conflict error with a specific code
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// KindOf returns the kind of a domain error, or "" for other errors
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

// IsConflict reports whether err is a lost optimistic update or identifier race
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
