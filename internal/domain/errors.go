package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so sentinel
// errors still match after WithCause attached an underlying error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of the error carrying the given cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the first DomainError in err's chain, or "".
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuestion     = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrQueryTooShort     = NewDomainError(ErrCodeValidation, "query must be at least 2 characters")
	ErrEmptyCode         = NewDomainError(ErrCodeValidation, "code is required")
	ErrInvalidSnapshotID = NewDomainError(ErrCodeValidation, "invalid snapshot id")
)

// Not found errors
var (
	ErrCodeNotFoundInSnapshot = NewDomainError(ErrCodeNotFound, "code not found")
	ErrNoRelevantContext      = NewDomainError(ErrCodeNotFound, "no relevant context found")
)

// Upstream errors. These always carry the underlying cause.
var (
	ErrRetrievalUnavailable  = NewDomainError(ErrCodeUpstreamUnavailable, "retrieval unavailable")
	ErrExtractionUnavailable = NewDomainError(ErrCodeUpstreamUnavailable, "answer extraction unavailable")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
