package core

import (
	"github.com/google/uuid"

	"github.com/hupe1980/orgmesh/logging"
)

// NewID returns a new random identifier suitable for messages, meetings and tasks.
func NewID() string {
	return uuid.NewString()
}

// EnsureLogger returns l, or a NoOpLogger when l is nil. Components call this
// in their constructors so a nil logger option is always safe.
func EnsureLogger(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NoOpLogger{}
	}
	return l
}
