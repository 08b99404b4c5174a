package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoActiveMatch is returned when a conversation has no live match.
var ErrNoActiveMatch = errors.New("no active match for this conversation")

// ValidationError rejects an intent that is not allowed in the current
// state or for the acting player. The persisted state is untouched and
// the message is meant for the actor, not the whole conversation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is an intent rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvariantViolationError marks a loaded match that fails its structural
// invariants. The session is unrecoverable; no repair is attempted.
type InvariantViolationError struct {
	SessionID string
	Err       error
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("match for session %s is corrupt: %v", e.SessionID, e.Err)
}

func (e *InvariantViolationError) Unwrap() error {
	return e.Err
}
