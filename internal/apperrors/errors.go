package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrUnavailable indicates that a dependency (database, upstream) could not serve the request.
var ErrUnavailable = errors.New("service dependency unavailable")

// ErrAllProvidersFailed indicates that every configured rate provider failed.
var ErrAllProvidersFailed = errors.New("all rate providers failed")

// ErrRateLimited indicates that the client exceeded its admission ceiling.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrJobRunning indicates that a scheduled job is already in flight.
var ErrJobRunning = errors.New("job already running")

// AppError carries an HTTP-ish status code alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause, so errors.Is works through AppError.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError. A 5xx code with a cause is also tagged
// as ErrUnavailable so callers can tell "degraded" from "not found".
func NewAppError(code int, message string, err error) *AppError {
	if code >= http.StatusInternalServerError && err != nil && !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError wraps ErrNotFound with a message.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Err: ErrNotFound}
}

// NewValidationError wraps ErrValidation with a message.
func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Err: ErrValidation}
}
