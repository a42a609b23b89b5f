// Package common defines the error taxonomy shared across the backend.
// Services return errors built with E; handlers match the kind with
// errors.Is and map it to a single HTTP status code.
package common

import "errors"

var (
	// Request-shape errors.
	ErrValidation = errors.New("validation error")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Credential errors (wrong password, bad OTP, bad token).
	ErrUnauthorized = errors.New("unauthorized")

	// OTP past its expiry timestamp.
	ErrExpired = errors.New("expired")

	// Anything whose cause must stay out of the response body.
	ErrInternal = errors.New("internal error")
)

// Error pairs a taxonomy kind with a message safe to show to callers.
// The underlying cause, if any, is logged at the call site and never
// travels with the error.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// E builds a taxonomy error with a caller-facing message.
func E(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
