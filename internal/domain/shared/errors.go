package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every domain package. The HTTP layer maps them to statuses.
const (
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeDependencyFailure      = "DEPENDENCY_FAILURE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so sentinel values
// like ErrNotFound work with errors.Is regardless of the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error carrying the given details
func (e *DomainError) WithDetails(details ...string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: append([]string(nil), details...),
	}
}

// Common domain errors
var (
	ErrUnauthenticated        = NewDomainError(CodeUnauthenticated, "Authentication required")
	ErrForbidden              = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict               = NewDomainError(CodeConflict, "Resource state conflicts with the request")
	ErrValidation             = NewDomainError(CodeValidationFailed, "Invalid input provided")
	ErrDependencyFailure      = NewDomainError(CodeDependencyFailure, "A downstream dependency failed")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
)

// NewUnauthenticatedError creates an UNAUTHENTICATED error
func NewUnauthenticatedError(message string) *DomainError {
	return NewDomainError(CodeUnauthenticated, message)
}

// NewForbiddenError creates a FORBIDDEN error
func NewForbiddenError(message string) *DomainError {
	return NewDomainError(CodeForbidden, message)
}

// NewNotFoundError creates a NOT_FOUND error for a resource and its identifier
func NewNotFoundError(resource string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

// NewConflictError creates a CONFLICT error
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewValidationError creates a VALIDATION_FAILED error
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidationFailed, message)
}

// NewDependencyError creates a DEPENDENCY_FAILURE error
func NewDependencyError(message string) *DomainError {
	return NewDomainError(CodeDependencyFailure, message)
}

// HasCode reports whether err wraps a DomainError with the given code
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
