package core

import (
	"strings"
	"sync"
	"time"
)

// MeetingRecord is one calendar entry. A record appended to any participant's
// calendar must appear, with matching EventID, in every other participant's
// calendar. EventID comes from the external provider when one is configured,
// otherwise it is generated locally.
type MeetingRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Participants []string  `json:"participants"`
	Summary      string    `json:"summary,omitempty"`
	EventID      string    `json:"event_id"`
}

// Overlaps reports whether the [start,end] window conflicts with the record
// using the boundary-inclusive policy: strict overlap, identity and shared
// boundaries all count as conflicts.
func (m MeetingRecord) Overlaps(start, end time.Time) bool {
	return !start.After(m.End) && !end.Before(m.Start)
}

// Calendar is a node's ordered meeting list. All mutation is serialized
// behind an internal lock so schedulers on other nodes can write safely.
type Calendar struct {
	mu       sync.RWMutex
	meetings []MeetingRecord
}

// NewCalendar creates an empty calendar.
func NewCalendar() *Calendar {
	return &Calendar{meetings: []MeetingRecord{}}
}

// Add appends a record.
func (c *Calendar) Add(rec MeetingRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meetings = append(c.meetings, rec)
}

// Remove deletes the record with the given event id, reporting whether a
// record was removed.
func (c *Calendar) Remove(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.meetings {
		if m.EventID == eventID {
			c.meetings = append(c.meetings[:i], c.meetings[i+1:]...)
			return true
		}
	}
	return false
}

// Update mutates the record with the given event id in place via fn,
// reporting whether a record matched.
func (c *Calendar) Update(eventID string, fn func(*MeetingRecord)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.meetings {
		if c.meetings[i].EventID == eventID {
			fn(&c.meetings[i])
			return true
		}
	}
	return false
}

// Meetings returns a copy of all records.
func (c *Calendar) Meetings() []MeetingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MeetingRecord, len(c.meetings))
	copy(out, c.meetings)
	return out
}

// Len returns the number of records.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meetings)
}

// OnDate returns copies of the records whose start falls on the given
// calendar day in t's location.
func (c *Calendar) OnDate(t time.Time) []MeetingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	y, m, d := t.Date()
	var out []MeetingRecord
	for _, rec := range c.meetings {
		ry, rm, rd := rec.Start.In(t.Location()).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, rec)
		}
	}
	return out
}

// Conflicting returns the first record conflicting with the [start,end]
// window under the boundary-inclusive policy, or nil.
func (c *Calendar) Conflicting(start, end time.Time) *MeetingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.meetings {
		if m.Overlaps(start, end) {
			rec := m
			return &rec
		}
	}
	return nil
}

// FindByEvent returns a copy of the record with the given event id, or nil.
func (c *Calendar) FindByEvent(eventID string) *MeetingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.meetings {
		if m.EventID == eventID {
			rec := m
			return &rec
		}
	}
	return nil
}

// Describe renders the calendar as a compact line-per-meeting listing used in
// reasoner prompts and user-facing summaries.
func (c *Calendar) Describe() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.meetings) == 0 {
		return "no meetings scheduled"
	}
	var b strings.Builder
	for i, m := range c.meetings {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(m.Title)
		b.WriteString(": ")
		b.WriteString(m.Start.Format("2006-01-02 15:04"))
		b.WriteString(" to ")
		b.WriteString(m.End.Format("15:04"))
	}
	return b.String()
}
