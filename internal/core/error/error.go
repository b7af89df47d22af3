package errx

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// UpstreamErrorMessage masks model/data-API failures from the caller.
	UpstreamErrorMessage = "assistant temporarily unavailable"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// AppError wraps an underlying error with an HTTP status and safe message.
// The Message is what the endpoint returns; Err carries the full detail for
// server-side logging only.
type AppError struct {
	Err     error
	Status  int
	Message string

	// RetryAfter is set for rate-limit errors so the HTTP layer can emit a
	// Retry-After header without reaching back into the limiter.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Validation marks a malformed or missing request field.
func Validation(message string) *AppError {
	return New(nil, http.StatusBadRequest, message)
}

// Unauthorized marks a missing or invalid session.
func Unauthorized(err error) *AppError {
	return New(err, http.StatusUnauthorized, "authentication required")
}

// RateLimited marks an exhausted rate-limit window.
func RateLimited(retryAfter time.Duration) *AppError {
	e := New(nil, http.StatusTooManyRequests, "rate limit exceeded")
	e.RetryAfter = retryAfter
	return e
}

// Upstream marks a model or data-API failure. The caller sees a generic
// message; the wrapped error carries the detail.
func Upstream(err error) *AppError {
	return New(err, http.StatusInternalServerError, UpstreamErrorMessage)
}

// StatusOf extracts the HTTP status from an error chain, defaulting to 500.
func StatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) {
		return app.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the safe user-facing message from an error chain.
func MessageOf(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	return SystemErrorMessage
}
