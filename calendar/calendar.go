package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates an event id unknown to the provider.
var ErrNotFound = errors.New("event not found")

// Event is the provider-side meeting representation.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// Provider is the external calendar capability contract.
type Provider interface {
	// ListUpcoming returns up to max events starting at or after now,
	// ordered by start time.
	ListUpcoming(ctx context.Context, max int) ([]Event, error)

	// Insert stores the event and returns it with its assigned id.
	Insert(ctx context.Context, ev Event) (Event, error)

	// Update replaces the event with the given id.
	Update(ctx context.Context, id string, ev Event) (Event, error)

	// Delete removes the event with the given id.
	Delete(ctx context.Context, id string) error
}
