// Package apperrors provides structured error types for the planwise backend.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrConfig marks a startup-time misconfiguration (missing or malformed
	// credential). Distinct from runtime upstream failures so operators can
	// tell "you forgot to configure this" apart from "the provider is down".
	ErrConfig = errors.New("invalid configuration")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("access denied")

	// ErrUpstreamAuth means the model provider rejected our credentials at
	// call time. Non-retryable: no point cycling through other models.
	ErrUpstreamAuth = errors.New("upstream authentication failed")

	// ErrUpstream covers every other upstream failure, including exhausting
	// all candidate models.
	ErrUpstream = errors.New("upstream request failed")
)

// APIError represents an error returned by an external API call.
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

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// MessageOf returns the upstream error message carried by err, or "".
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
