package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
	// ErrTokenNotFoundOrExpired covers absent, expired, mismatched and
	// already-used tokens alike, including tokens of unknown accounts.
	ErrTokenNotFoundOrExpired = errors.New("invalid or expired reset token")
	// ErrDependencyUnavailable marks retryable store failures and timeouts.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrNotificationFailed    = errors.New("notification delivery failed")
	ErrMalformedHash         = errors.New("malformed password hash")
)

// ValidationError reports the first input rule that was violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// dependencyError wraps store failures so callers can match them with errors.Is.
func dependencyError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out", ErrDependencyUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrDependencyUnavailable, op, err)
}
