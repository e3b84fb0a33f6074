package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error for boundary and lifecycle failures.
type Error struct {
	Type         ErrorType `json:"type"`
	Message      string    `json:"message"`
	Param        string    `json:"param,omitempty"`
	Code         string    `json:"code,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	RetryAfterMs *int      `json:"retryAfterMs,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConfiguration means a required credential or setting is missing.
	// Fatal to the affected boundary; never retried.
	ErrConfiguration ErrorType = "configuration_error"
	// ErrValidation means a required input was missing or empty. The request
	// is rejected without mutating any state.
	ErrValidation ErrorType = "validation_error"
	// ErrRateLimit carries a retry delay from a throttling endpoint. It is
	// absorbed by the rate governor, never surfaced to the user.
	ErrRateLimit ErrorType = "rate_limit_error"
	// ErrBoundary is any other transient classifier/transcription failure.
	ErrBoundary ErrorType = "boundary_error"
	// ErrStream is a lifecycle failure reported by the streaming collaborator.
	ErrStream ErrorType = "stream_error"
)

// NewConfigurationError creates a missing-credential/config error.
func NewConfigurationError(message string) *Error {
	return &Error{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// NewValidationError creates a validation error for a specific parameter.
func NewValidationError(message, param string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
		Param:   param,
	}
}

// NewRateLimitError creates a rate limit error carrying the server-suggested
// delay in milliseconds.
func NewRateLimitError(message string, retryAfterMs int) *Error {
	return &Error{
		Type:         ErrRateLimit,
		Message:      message,
		RetryAfterMs: &retryAfterMs,
	}
}

// NewBoundaryError creates a transient boundary error.
func NewBoundaryError(message string) *Error {
	return &Error{
		Type:    ErrBoundary,
		Message: message,
	}
}

// NewStreamError creates a stream lifecycle error with a machine-readable
// reason code.
func NewStreamError(reason, message string) *Error {
	return &Error{
		Type:    ErrStream,
		Message: message,
		Code:    reason,
	}
}

// IsRateLimit reports whether err is a rate limit error, returning the
// suggested retry delay if the server provided one.
func IsRateLimit(err error) (retryAfterMs int, ok bool) {
	var coreErr *Error
	if !errors.As(err, &coreErr) || coreErr == nil {
		return 0, false
	}
	if coreErr.Type != ErrRateLimit {
		return 0, false
	}
	if coreErr.RetryAfterMs != nil {
		retryAfterMs = *coreErr.RetryAfterMs
	}
	return retryAfterMs, true
}

// IsRetryable returns true if a later attempt may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrBoundary:
		return true
	default:
		return false
	}
}
