package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned when an operation requires an identity.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrNotFound is returned when a history record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a record belongs to another identity.
	ErrForbidden = errors.New("forbidden")
	// ErrStore wraps failures of a backing store.
	ErrStore = errors.New("store failure")

	// ErrInvalidSession is returned for session numbers outside [1, SessionCount].
	ErrInvalidSession = fmt.Errorf("%w: session id must be between 1 and %d", ErrValidation, SessionCount)
	// ErrNoQuestionsFound is returned when a session resolves to an empty question set.
	ErrNoQuestionsFound = fmt.Errorf("%w: no matching questions for session", ErrValidation)
	// ErrMissingTimestamp is returned when a progress snapshot lacks lastUpdated.
	ErrMissingTimestamp = fmt.Errorf("%w: lastUpdated is required", ErrValidation)
	// ErrSessionLocked is returned when a session is opened before its predecessor is completed.
	ErrSessionLocked = fmt.Errorf("%w: session is locked", ErrValidation)
)

// Invalid builds a validation error naming the violated constraint.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StoreError wraps a backing-store failure with the operation that failed.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// ValidSession reports whether n is a playable session number.
func ValidSession(n int) bool {
	return n >= 1 && n <= SessionCount
}
