package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRecipient indicates a send to an unregistered node. The bus
	// logs and swallows it; it never reaches callers through the router.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrPastTime indicates a requested meeting time that already passed.
	ErrPastTime = errors.New("requested time is in the past")

	// ErrProviderUnavailable indicates no external calendar provider is
	// configured; callers switch to the local fallback path.
	ErrProviderUnavailable = errors.New("calendar provider unavailable")

	// ErrUnknownParticipant indicates a participant id with no registered
	// node; the surrounding operation skips it with a warning.
	ErrUnknownParticipant = errors.New("unknown participant")
)

// MissingFieldError reports a required meeting field that is absent. It is
// converted to a user-facing explanatory string before crossing the router.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}
