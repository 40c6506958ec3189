package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Model endpoint error codes
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrAuthentication      ErrorCode = "AUTHENTICATION"
	ErrRateLimit           ErrorCode = "RATE_LIMIT"
	ErrModelNotFound       ErrorCode = "MODEL_NOT_FOUND"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
)

// Team flow error codes
const (
	ErrGenerationFailure         ErrorCode = "GENERATION_FAILURE"
	ErrMalformedPersonaReference ErrorCode = "MALFORMED_PERSONA_REFERENCE"
	ErrArchivalFailure           ErrorCode = "ARCHIVAL_FAILURE"
	ErrFlowPending               ErrorCode = "FLOW_PENDING"
	ErrNoPendingFlow             ErrorCode = "NO_PENDING_FLOW"
	ErrTeamNotFound              ErrorCode = "TEAM_NOT_FOUND"
	ErrHatNotFound               ErrorCode = "HAT_NOT_FOUND"
	ErrInvalidTransition         ErrorCode = "INVALID_TRANSITION"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err's chain carries a *Error with the given code.
// Joined errors are searched branch by branch.
func IsErrorCode(err error, code ErrorCode) bool {
	switch x := err.(type) {
	case nil:
		return false
	case *Error:
		return x != nil && (x.Code == code || IsErrorCode(x.Cause, code))
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if IsErrorCode(e, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsErrorCode(x.Unwrap(), code)
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// NewGenerationError wraps a model failure raised while generating a persona response.
func NewGenerationError(hatID string, cause error) *Error {
	return NewError(ErrGenerationFailure, fmt.Sprintf("generation failed for hat %q", hatID)).
		WithCause(cause).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(IsRetryable(cause))
}

// NewMalformedReferenceError reports a persona reference that does not resolve.
func NewMalformedReferenceError(fromID, missingID string) *Error {
	return NewError(ErrMalformedPersonaReference,
		fmt.Sprintf("hat %q references unknown hat %q", fromID, missingID)).
		WithHTTPStatus(http.StatusUnprocessableEntity)
}

// NewArchivalError wraps a failure to persist a mission record.
func NewArchivalError(cause error) *Error {
	return NewError(ErrArchivalFailure, "mission record could not be archived").
		WithCause(cause).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}
