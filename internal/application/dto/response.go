// Package dto defines the request and response shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/clusterintranet/authgate/pkg/errors"
)

// APIResponse is the common response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO carries error information in API responses.
type ErrorDTO struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse wraps data in a success envelope.
func SuccessResponse(data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse wraps an error in a failure envelope. Non-AppError values are
// masked as internal errors so internals never leak to clients.
func ErrorResponse(err error) *APIResponse {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.ErrServerError("internal server error")
	}
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		Timestamp: time.Now().Unix(),
	}
}

// RateLimitResponse is the body of a 429 response.
type RateLimitResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int64  `json:"retry_after"`
	ResetAt    int64  `json:"reset_at"`
}

// NewRateLimitResponse builds the 429 body from the limiter decision.
func NewRateLimitResponse(retryAfter time.Duration, resetAt time.Time) *RateLimitResponse {
	return &RateLimitResponse{
		Success:    false,
		Error:      "rate limit exceeded, please try again later",
		RetryAfter: int64(retryAfter.Seconds()),
		ResetAt:    resetAt.Unix(),
	}
}
