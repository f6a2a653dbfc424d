package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/orgmesh/core"
)

// MemoryProvider is a thread-safe in-memory Provider. Events are cloned on
// read so callers can never mutate stored state.
type MemoryProvider struct {
	mu     sync.RWMutex
	events map[string]Event
	// now is swappable for tests.
	now func() time.Time
}

var _ Provider = (*MemoryProvider)(nil)

// MemoryOptions configures a MemoryProvider.
type MemoryOptions struct {
	// Now overrides the clock used by ListUpcoming. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider(optFns ...func(o *MemoryOptions)) *MemoryProvider {
	opts := MemoryOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MemoryProvider{events: map[string]Event{}, now: opts.Now}
}

// ListUpcoming implements Provider.
func (p *MemoryProvider) ListUpcoming(_ context.Context, max int) ([]Event, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cutoff := p.now()
	var out []Event
	for _, ev := range p.events {
		if ev.End.Before(cutoff) {
			continue
		}
		out = append(out, cloneEvent(ev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

// Insert implements Provider, assigning an id when the event has none.
func (p *MemoryProvider) Insert(_ context.Context, ev Event) (Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.ID == "" {
		ev.ID = core.NewID()
	}
	p.events[ev.ID] = cloneEvent(ev)
	return cloneEvent(ev), nil
}

// Update implements Provider.
func (p *MemoryProvider) Update(_ context.Context, id string, ev Event) (Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.events[id]; !ok {
		return Event{}, ErrNotFound
	}
	ev.ID = id
	p.events[id] = cloneEvent(ev)
	return cloneEvent(ev), nil
}

// Delete implements Provider.
func (p *MemoryProvider) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.events[id]; !ok {
		return ErrNotFound
	}
	delete(p.events, id)
	return nil
}

func cloneEvent(ev Event) Event {
	ev.Attendees = append([]string(nil), ev.Attendees...)
	return ev
}
