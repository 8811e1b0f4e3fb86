package domainerrors

import (
	"errors"
	"fmt"
)

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in monitoring terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_failed"
	CodeRateLimited        Code = "rate_limited"
	CodeSinkUnavailable    Code = "sink_unavailable"
	CodeIntegrityViolation Code = "integrity_violation"
	CodeInternal           Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// Field is set for validation failures and names the offending input field.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrValidation         = &Error{Code: CodeValidation}
	ErrRateLimited        = &Error{Code: CodeRateLimited}
	ErrSinkUnavailable    = &Error{Code: CodeSinkUnavailable}
	ErrIntegrityViolation = &Error{Code: CodeIntegrityViolation}
	ErrNotFound           = &Error{Code: CodeNotFound}
)

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Validation reports bad input shape for a named field.
func Validation(field, reason string) error {
	return &Error{
		Code:    CodeValidation,
		Field:   field,
		Message: fmt.Sprintf("%s: %s", field, reason),
	}
}

// RateLimited reports that an identifier is over its ingestion threshold.
func RateLimited(identifier string) error {
	return &Error{
		Code:    CodeRateLimited,
		Field:   identifier,
		Message: "rate limit exceeded",
	}
}

// Integrity reports an attempt to mutate an immutable record.
func Integrity(msg string) error {
	return &Error{Code: CodeIntegrityViolation, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Field: existing.Field, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// FieldOf returns the field carried by a domain error, or "" when absent.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
