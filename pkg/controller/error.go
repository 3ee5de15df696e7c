// Package controller maps counter outcomes onto HTTP responses.
package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/middleware/requestid"
	"github.com/nimburion/lazycounter/pkg/resilience"
)

// AppError carries an HTTP status and a stable code for errors raised by
// the HTTP layer itself.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// MapError maps an error onto a status code and response body.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := requestid.GetRequestID(ctx)

	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{
			Error:     appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
			Details:   appErr.Details,
		}
	case errors.Is(err, adapter.ErrNotInitialized):
		return http.StatusConflict, ErrorResponse{
			Error:     "not_initialized",
			Message:   "counter is not initialized",
			RequestID: requestID,
		}
	case errors.Is(err, adapter.ErrDisposed):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:     "disposed",
			Message:   adapter.ErrDisposed.Error(),
			RequestID: requestID,
		}
	case errors.Is(err, adapter.ErrThrottled):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:     "store_throttled",
			Message:   "counter store is throttling requests",
			RequestID: requestID,
		}
	case errors.Is(err, resilience.ErrOpen):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:     "store_unavailable",
			Message:   "counter store is unavailable",
			RequestID: requestID,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error:     "timeout",
			Message:   "counter store did not answer in time",
			RequestID: requestID,
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		}
	}
}

// NewValidationError creates a 400 error.
func NewValidationError(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       "validation_error",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// NewRequestTooLargeError creates a 413 error.
func NewRequestTooLargeError(cause error) *AppError {
	return &AppError{
		Code:       "request_too_large",
		Message:    "request body too large",
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Cause:      cause,
	}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: "not_found", Message: message, HTTPStatus: http.StatusNotFound}
}

// NewMethodNotAllowedError creates a 405 error.
func NewMethodNotAllowedError(message string) *AppError {
	return &AppError{Code: "method_not_allowed", Message: message, HTTPStatus: http.StatusMethodNotAllowed}
}
