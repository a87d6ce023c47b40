package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation  ErrorCategory = "validation"   // Invalid configuration
	ErrCatResolution  ErrorCategory = "resolution"   // Host name or address lookup failed
	ErrCatFileRead    ErrorCategory = "file_read"    // cgroup file missing or unreadable
	ErrCatParse       ErrorCategory = "parse"        // cgroup file content malformed
	ErrCatAuth        ErrorCategory = "auth"         // No credential source produced a token
	ErrCatVaultAccess ErrorCategory = "vault_access" // Secret denied, missing or vault unreachable
	ErrCatInternal    ErrorCategory = "internal"     // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrResolution creates a host resolution error.
func ErrResolution(host string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatResolution,
		Code:      CodeResolutionFailed,
		Message:   fmt.Sprintf("resolving host %q", host),
		Retryable: true,
		Cause:     cause,
		Details:   map[string]interface{}{"host": host},
	}
}

// ErrFileRead creates an error for an unreadable diagnostics file.
func ErrFileRead(path string, cause error) *DomainError {
	return &DomainError{
		Category: ErrCatFileRead,
		Code:     CodeFileReadFailed,
		Message:  fmt.Sprintf("reading %s", path),
		Cause:    cause,
		Details:  map[string]interface{}{"path": path},
	}
}

// ErrParse creates an error for a diagnostics file with malformed content.
func ErrParse(path, content string, cause error) *DomainError {
	return &DomainError{
		Category: ErrCatParse,
		Code:     CodeParseFailed,
		Message:  fmt.Sprintf("parsing %s: %q is not an integer", path, content),
		Cause:    cause,
		Details:  map[string]interface{}{"path": path},
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category: ErrCatAuth,
		Code:     CodeAuthFailed,
		Message:  message,
	}
}

// ErrVaultAccess creates a secret store access error.
func ErrVaultAccess(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatVaultAccess,
		Code:      code,
		Message:   message,
		Retryable: code == CodeVaultUnavailable,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// GetCode extracts the error code, or "" for non-domain errors.
func GetCode(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code
	}
	return ""
}

// Predefined error codes
const (
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeResolutionFailed = "RESOLUTION_FAILED"
	CodeFileReadFailed   = "FILE_READ_FAILED"
	CodeParseFailed      = "PARSE_FAILED"
	CodeAuthFailed       = "AUTH_FAILED"

	// Secret store error codes
	CodeSecretNotFound   = "SECRET_NOT_FOUND"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodeVaultUnavailable = "VAULT_UNAVAILABLE"
)
