package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy for the processing pipeline. Components wrap causes with
// these sentinels so the job loop can decide between retry, tier downgrade,
// skip, and abort.
var (
	ErrTransientUpstream = errors.New("transient upstream failure") // retried with backoff
	ErrCapabilityLimit   = errors.New("capability limit exceeded")  // chunk or downgrade, never retried
	ErrDocumentFormat    = errors.New("invalid document format")    // skip the document, keep going
	ErrPersistence       = errors.New("persistence failure")        // counted, does not abort the run
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
