package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Admission
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("action forbidden")

	// Lookups
	ErrNotFound        = errors.New("resource not found")
	ErrPictureNotFound = fmt.Errorf("picture %w", ErrNotFound)
	ErrSpaceNotFound   = fmt.Errorf("space %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	// Steady state
	ErrInvalidMessage    = errors.New("invalid message")
	ErrOverloaded        = errors.New("event buffer saturated")
	ErrProcessingFailure = errors.New("event processing failed")
	ErrPipelineClosed    = errors.New("event pipeline closed")

	// Generic
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthenticated,
		Message:    message,
		Code:       "UNAUTHENTICATED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// InvalidMessage wraps a frame decoding problem as ErrInvalidMessage.
func InvalidMessage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}
