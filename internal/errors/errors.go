// Package errors provides the base domain errors shared by every module. Domain packages
// declare their own sentinels by wrapping one of these, and the HTTP layer maps the base
// error to a status code without knowing about individual domains.
package errors

import (
	"errors"
	"fmt"
)

// Base domain errors.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., a duplicate chain position).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data or configuration is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request carries no usable caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the operation is not permitted, regardless of who asks.
	ErrForbidden = errors.New("forbidden")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
