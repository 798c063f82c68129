// Package apperror defines the error taxonomy shared by every layer.
//
// Services return *AppError values; the HTTP layer maps the wrapped sentinel
// to a status code with errors.Is. No layer below the handlers knows about
// HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable, safe to show to clients
	Field   string // optional: field causing the error
	Cause   error  // optional: underlying failure, logged but never rendered
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is/As can reach
// either one.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// Unauthorized covers both a missing/invalid credential and a valid
// credential that does not own the requested record.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
	}
}

// Internal wraps an unexpected failure. Message is what the client sees,
// cause is what the logs see.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
		Cause:   cause,
	}
}
