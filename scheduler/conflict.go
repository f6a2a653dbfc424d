package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/reasoner"
)

// Resolution is a resolver verdict. Conflict reports whether the requested
// window had to be moved; ProposedStart is always usable, either the original
// start or the suggested alternative.
type Resolution struct {
	Conflict      bool
	ProposedStart time.Time
}

// ConflictResolver proposes a start time that works for every participant
// given their busy windows.
type ConflictResolver interface {
	Resolve(ctx context.Context, busy map[string][]core.MeetingRecord, start, end time.Time) (Resolution, error)
}

// IntervalOptions configures an IntervalResolver.
type IntervalOptions struct {
	// Gap is the minimum distance to the end of a blocking meeting. Windows
	// that merely touch still conflict, so the gap must be positive.
	Gap time.Duration
	// MaxAttempts bounds the forward scan.
	MaxAttempts int
}

// IntervalResolver finds the earliest window after the requested start that
// is free for every participant, by skipping past blocking meetings.
type IntervalResolver struct {
	gap         time.Duration
	maxAttempts int
}

var _ ConflictResolver = (*IntervalResolver)(nil)

// NewIntervalResolver creates an IntervalResolver.
func NewIntervalResolver(optFns ...func(o *IntervalOptions)) *IntervalResolver {
	opts := IntervalOptions{
		Gap:         time.Minute,
		MaxAttempts: 100,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &IntervalResolver{gap: opts.Gap, maxAttempts: opts.MaxAttempts}
}

// Resolve implements ConflictResolver.
func (r *IntervalResolver) Resolve(_ context.Context, busy map[string][]core.MeetingRecord, start, end time.Time) (Resolution, error) {
	var all []core.MeetingRecord
	for _, recs := range busy {
		all = append(all, recs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })

	length := end.Sub(start)
	candidate := start
	moved := false
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		blocker := firstOverlap(all, candidate, candidate.Add(length))
		if blocker == nil {
			return Resolution{Conflict: moved, ProposedStart: candidate}, nil
		}
		candidate = blocker.End.Add(r.gap)
		moved = true
	}
	return Resolution{}, fmt.Errorf("no free slot found within %d attempts", r.maxAttempts)
}

func firstOverlap(recs []core.MeetingRecord, start, end time.Time) *core.MeetingRecord {
	for _, rec := range recs {
		if rec.Overlaps(start, end) {
			blocker := rec
			return &blocker
		}
	}
	return nil
}

// ReasonerResolver delegates slot finding to the reasoner, handing it every
// participant's busy windows and expecting a structured verdict back.
type ReasonerResolver struct {
	rsn reasoner.Reasoner
}

var _ ConflictResolver = (*ReasonerResolver)(nil)

// NewReasonerResolver creates a ReasonerResolver.
func NewReasonerResolver(rsn reasoner.Reasoner) *ReasonerResolver {
	return &ReasonerResolver{rsn: rsn}
}

// Resolve implements ConflictResolver.
func (r *ReasonerResolver) Resolve(ctx context.Context, busy map[string][]core.MeetingRecord, start, end time.Time) (Resolution, error) {
	prompt := fmt.Sprintf(
		"A meeting from %s to %s is requested. These are the participants' existing meetings:\n\n%s\n\n"+
			"Decide whether the requested window conflicts with any existing meeting. Meetings that touch at a boundary conflict. "+
			"Propose the earliest start time, of the same length, that works for everyone; if the requested window is free, propose it unchanged.\n\n"+
			"Respond with JSON only:\n"+
			"{\"exist_conflict\": true|false, \"proposed_start_time\": \"YYYY-MM-DDTHH:MM:SS\"}",
		start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"), describeBusy(busy))

	raw, err := r.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You resolve meeting scheduling conflicts. Respond with JSON only."),
		reasoner.User(prompt),
	})
	if err != nil {
		return Resolution{}, err
	}

	var parsed struct {
		ExistConflict     bool   `json:"exist_conflict"`
		ProposedStartTime string `json:"proposed_start_time"`
	}
	if err := reasoner.Unmarshal(raw, &parsed); err != nil {
		return Resolution{}, err
	}
	proposed, err := time.ParseInLocation("2006-01-02T15:04:05", parsed.ProposedStartTime, start.Location())
	if err != nil {
		return Resolution{}, &reasoner.ParseError{Raw: raw, Err: err}
	}
	return Resolution{Conflict: parsed.ExistConflict, ProposedStart: proposed}, nil
}

func describeBusy(busy map[string][]core.MeetingRecord) string {
	ids := make([]string, 0, len(busy))
	for id := range busy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s:\n", id)
		if len(busy[id]) == 0 {
			b.WriteString("  (free)\n")
			continue
		}
		for _, rec := range busy[id] {
			fmt.Fprintf(&b, "  - %s: %s to %s\n", rec.Title, rec.Start.Format("2006-01-02 15:04"), rec.End.Format("2006-01-02 15:04"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
