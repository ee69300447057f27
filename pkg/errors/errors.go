// Package errors defines the structured application error type used by the
// Authgate service and the predefined constructors handlers map to HTTP
// responses. Expected validation outcomes (bad token, exhausted rate limit)
// are returned as structured results by their components, never as errors;
// this package covers faults and caller misuse.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in API responses.
const (
	CodeInternal          = "internal_error"
	CodeInvalidRequest    = "invalid_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeRateLimitExceeded = "rate_limit_exceeded"
)

// AppError represents a structured application error.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]string
	cause      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error-chain support.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithError attaches a cause to a copy of the error.
func (e *AppError) WithError(cause error) *AppError {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithDetails attaches field-level details to a copy of the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// New creates a new AppError.
func New(code string, httpStatus int, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrInvalidRequest creates an invalid_request error.
func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrUnauthorized creates an unauthorized error. The message is intentionally
// generic; the real rejection reason stays in the logs.
func ErrUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// ErrForbidden creates a forbidden error.
func ErrForbidden(message string) *AppError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

// ErrNotFound creates a not_found error.
func ErrNotFound(resource string) *AppError {
	return New(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *AppError {
	return New(CodeConflict, http.StatusConflict, message)
}

// ErrServerError creates an internal_error error.
func ErrServerError(message string) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// ErrRateLimitExceeded creates a rate_limit_exceeded error carrying the
// retry delay in seconds.
func ErrRateLimitExceeded(retryAfterSeconds int) *AppError {
	return New(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"rate limit exceeded, please try again later").
		WithDetails(map[string]string{
			"retry_after": fmt.Sprintf("%d", retryAfterSeconds),
		})
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
