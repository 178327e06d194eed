// Package common defines shared constants and sentinel errors used across
// the Incomiq persistence and credential layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors raised on signup.
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")
	ErrInvalidName      = errors.New("please enter your full name")
	ErrDuplicateAccount = errors.New("an account with this email already exists")

	// Document validation. Wrapped with a detail message, matched with
	// errors.Is.
	ErrValidation = errors.New("validation failed")

	// Auth errors. ErrInvalidCredentials is deliberately shared between
	// "unknown email" and "wrong password" so callers cannot enumerate
	// accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Admin gate.
	ErrForbidden = errors.New("admin access required")
)
