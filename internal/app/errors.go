package app

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInvite indicates a malformed or forged invite token.
	ErrInvalidInvite = errors.New("invalid invite")
	// ErrEventNotFound indicates a reference to a missing event.
	ErrEventNotFound = errors.New("event not found")
	// ErrNoAccess indicates the user is neither owner nor invited.
	ErrNoAccess = errors.New("no access to event")
)

// ValidationError reports an empty or invalid field during event creation.
// It is recovered locally by re-prompting the same step.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
