// Package domain defines the core domain models for prodadmin.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a client error with a structured error code.
// Two DomainErrors compare equal under errors.Is when their codes match,
// so callers test against the sentinels below.
type DomainError struct {
	Code    string // Error code (e.g., "PA-AUTH-4030")
	Message string // Human-readable message
	Details string // Server-supplied or contextual detail
	Status  int    // HTTP status that produced the error, 0 if none
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithStatus returns a copy of the error carrying the HTTP status.
func (e *DomainError) WithStatus(status int) *DomainError {
	c := *e
	c.Status = status
	return &c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// UserMessage returns the text meant for the person at the terminal:
// the server-supplied detail when there is one, otherwise the generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		if de.Details != "" {
			return de.Details
		}
		return de.Message
	}
	return err.Error()
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrMissingCredential indicates no token is held for a protected call.
	ErrMissingCredential = NewDomainError("PA-AUTH-4010", "no authentication token found")

	// ErrInvalidCredentials indicates the backend rejected a login attempt.
	ErrInvalidCredentials = NewDomainError("PA-AUTH-4011", "invalid username or password")

	// ErrForbidden indicates an established token was rejected mid-session.
	ErrForbidden = NewDomainError("PA-AUTH-4030", "authentication required")
)

// ============================================================================
// Transport Errors (NET)
// ============================================================================

var (
	// ErrNetworkUnavailable indicates the backend could not be reached.
	ErrNetworkUnavailable = NewDomainError("PA-NET-5030", "network unavailable")

	// ErrTimeout indicates the call exceeded its time budget.
	ErrTimeout = NewDomainError("PA-NET-5040", "request timed out")
)

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrRequestFailed indicates a non-2xx response other than 403.
	ErrRequestFailed = NewDomainError("PA-REQ-5000", "request failed")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrTransitionInProgress indicates another login, logout or
	// validation is still running.
	ErrTransitionInProgress = NewDomainError("PA-SESS-4090", "authentication transition in progress")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidInput indicates client-side validation failed.
	ErrInvalidInput = NewDomainError("PA-ARG-1001", "invalid input")
)
