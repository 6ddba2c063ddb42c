// Package errors provides structured error types for the PMO agent.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout       = errors.New("operation timed out")
	ErrNotFound      = errors.New("resource not found")
	ErrAmbiguous     = errors.New("ambiguous match")
	ErrNotConfigured = errors.New("backend not configured")
	ErrUnavailable   = errors.New("service unavailable")
	ErrInvalidInput  = errors.New("invalid input")
)

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error. err may be nil.
func NewAPIError(service string, statusCode int, message string, err error) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message, Err: err}
}

// IsRetryable reports whether the error is transient and worth retrying:
// timeouts, unavailability, API rate limits and server-side failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

// Is reports whether err (or anything it wraps) matches target.
// Thin re-export so callers don't need a second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is a re-export of the standard errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
