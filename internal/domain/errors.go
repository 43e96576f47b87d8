// Package domain holds the core record types and the sentinel errors shared
// by every layer. Callers match errors with errors.Is.
package domain

import (
	"errors"
	"time"
)

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// User directory errors.
	ErrDuplicatePhone  = errors.New("phone already registered")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrAlreadyVerified = errors.New("already verified")
	ErrWrongPassword   = errors.New("wrong password")
	ErrNoCodeRequested = errors.New("no verification requested")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrInvalidCode     = errors.New("invalid verification code")

	// Login errors.
	ErrInvalidCredentials = errors.New("invalid phone or password")
	ErrNotVerified        = errors.New("email not verified")

	// Draft session errors.
	ErrNoActiveSession = errors.New("no active report")
	ErrSessionActive   = errors.New("a report is already in progress")
	ErrTooManyPhotos   = errors.New("photo limit reached")

	// Throttle errors, wrapped in ThrottledError to carry the hint.
	ErrRateLimited = errors.New("too many requests")
	ErrLocked      = errors.New("too many failed attempts")
)

// ThrottledError wraps ErrRateLimited or ErrLocked with a retry-after hint.
type ThrottledError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string { return e.Err.Error() }

func (e *ThrottledError) Unwrap() error { return e.Err }

func Throttled(err error, retryAfter time.Duration) error {
	return &ThrottledError{Err: err, RetryAfter: retryAfter}
}
