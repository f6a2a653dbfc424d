package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/orgmesh/calendar"
	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/reasoner"
)

// futureNote augments a reopened question after an unusable or past time.
const futureNote = " (please ensure it's a future date and time)"

// Details holds the extracted meeting parameters before validation.
type Details struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Duration     int      `json:"duration"`
}

// extractDetails pulls structured meeting parameters out of a free-form
// request. Duration comes back in minutes and defaults to the configured
// meeting length.
func (s *Scheduler) extractDetails(ctx context.Context, message string) (Details, error) {
	if s.rsn == nil {
		return Details{}, fmt.Errorf("no reasoner configured")
	}

	prompt := fmt.Sprintf(
		"Today is %s. Extract the meeting details from the request below.\n\n"+
			"Request: %s\n\n"+
			"Respond with JSON only:\n"+
			"{\"title\": \"...\", \"participants\": [\"...\"], \"date\": \"YYYY-MM-DD\", \"time\": \"HH:MM\", \"duration\": <minutes>}\n\n"+
			"Use empty values for anything the request does not specify.",
		s.now().Format("2006-01-02"), message)

	raw, err := s.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You extract structured meeting details. Respond with JSON only."),
		reasoner.User(prompt),
	})
	if err != nil {
		return Details{}, err
	}

	var details Details
	if err := reasoner.Unmarshal(raw, &details); err != nil {
		return Details{}, err
	}
	if details.Duration <= 0 {
		details.Duration = int(s.duration / time.Minute)
	}
	return details, nil
}

// CreateMeeting runs the full creation path: extraction, validation,
// participant normalization, time resolution, conflict handling and booking.
func (s *Scheduler) CreateMeeting(ctx context.Context, message string) string {
	details, err := s.extractDetails(ctx, message)
	if err != nil {
		s.logger.Warn("meeting extraction failed", "error", err)
		return "Sorry, I couldn't understand the meeting details. Could you rephrase?"
	}

	if err := validateDetails(details); err != nil {
		var missing *core.MissingFieldError
		if errors.As(err, &missing) {
			return fmt.Sprintf("Cannot schedule meeting: missing %s.", missing.Field)
		}
		return "Cannot schedule meeting: " + err.Error() + "."
	}

	participants := s.roster.Normalize(details.Participants)
	for _, name := range details.Participants {
		if _, ok := s.roster.Resolve(name); !ok {
			s.logger.Warn("dropping unknown participant", "name", name)
		}
	}
	if len(participants) == 0 {
		return "Cannot schedule meeting: none of the participants are known."
	}
	participants = ensureMember(participants, s.nodeID)

	duration := time.Duration(details.Duration) * time.Minute
	now := s.now()
	if details.Date == "" {
		details.Date = now.Format("2006-01-02")
	}

	start, end, err := s.resolveWindow(details.Date, details.Time, duration, now)
	switch {
	case errors.Is(err, core.ErrPastTime):
		return s.reopenForTime(details, "That time is in the past.")
	case err != nil:
		return s.reopenForTime(details, "I couldn't make sense of that date and time.")
	}

	return s.scheduleAt(ctx, details.Title, start, end, participants)
}

// validateDetails reports the first required field that is absent.
func validateDetails(d Details) error {
	if d.Title == "" {
		return &core.MissingFieldError{Field: FieldTitle}
	}
	if len(d.Participants) == 0 {
		return &core.MissingFieldError{Field: FieldParticipants}
	}
	if d.Time == "" {
		return &core.MissingFieldError{Field: FieldTime}
	}
	return nil
}

// resolveWindow turns the collected date and time into a concrete meeting
// window. Times that already passed are rejected, not silently adjusted.
func (s *Scheduler) resolveWindow(date, clock string, duration time.Duration, now time.Time) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.Before(now) {
		return time.Time{}, time.Time{}, core.ErrPastTime
	}
	return start, start.Add(duration), nil
}

// reopenForTime restarts a [date, time] draft while keeping the already
// collected title and participants.
func (s *Scheduler) reopenForTime(details Details, reason string) string {
	s.state.StartDraft("Schedule a meeting titled "+details.Title, []string{FieldDate, FieldTime}, false, "")
	// Re-seed the answers that survive the retry.
	if details.Title != "" {
		s.state.SeedAnswer(FieldTitle, details.Title)
	}
	if len(details.Participants) > 0 {
		s.state.SeedAnswer(FieldParticipants, strings.Join(details.Participants, ", "))
	}
	return reason + " " + fieldQuestions[FieldDate] + futureNote
}

// scheduleAt books the window directly when it is free for everyone,
// otherwise consults the conflict resolver and either books the proposed slot
// or asks for confirmation.
func (s *Scheduler) scheduleAt(ctx context.Context, title string, start, end time.Time, participants []string) string {
	busy := map[string][]core.MeetingRecord{}
	conflicted := ""
	for _, p := range participants {
		cal, ok := s.calendarOf(p)
		if !ok {
			continue
		}
		busy[p] = cal.Meetings()
		if conflicted == "" && cal.Conflicting(start, end) != nil {
			conflicted = p
		}
	}

	if conflicted == "" {
		return s.book(ctx, title, start, end, participants)
	}

	res, err := s.resolver.Resolve(ctx, busy, start, end)
	if err != nil {
		s.logger.Warn("conflict resolution failed", "error", err)
		return "Sorry, I couldn't find an alternative time slot for all participants."
	}
	if !res.Conflict {
		return s.book(ctx, title, res.ProposedStart, res.ProposedStart.Add(end.Sub(start)), participants)
	}

	proposedEnd := res.ProposedStart.Add(end.Sub(start))
	s.state.SetConfirmation(dialog.Confirmation{
		Kind: dialog.ConfirmScheduleMeeting,
		Meeting: &dialog.PendingMeeting{
			Title:        title,
			Start:        res.ProposedStart,
			End:          proposedEnd,
			Participants: participants,
		},
	})
	return fmt.Sprintf("Conflict found for %s. The next available slot for all participants seems to be %s. Schedule then? (yes/no)",
		conflicted, res.ProposedStart.Format("2006-01-02 15:04"))
}

// BookPending books a meeting that was previously confirmed.
func (s *Scheduler) BookPending(ctx context.Context, pm dialog.PendingMeeting) string {
	return s.book(ctx, pm.Title, pm.Start, pm.End, pm.Participants)
}

// book writes the record into every participant's calendar and notifies them.
// The external provider supplies the event id when configured; otherwise a
// locally unique id is generated so later cancellation and rescheduling can
// correlate the copies.
func (s *Scheduler) book(ctx context.Context, title string, start, end time.Time, participants []string) string {
	eventID := "local_" + core.NewID()
	if s.provider != nil {
		ev, err := s.provider.Insert(ctx, calendar.Event{
			Title:     title,
			Start:     start,
			End:       end,
			Attendees: participants,
		})
		if err != nil {
			s.logger.Warn("provider insert failed, booking locally", "error", err)
		} else {
			eventID = ev.ID
		}
	}

	rec := core.MeetingRecord{
		ID:           core.NewID(),
		Title:        title,
		Start:        start,
		End:          end,
		Participants: append([]string(nil), participants...),
		EventID:      eventID,
	}

	var others []string
	for _, p := range participants {
		cal, ok := s.calendarOf(p)
		if !ok {
			s.logger.Warn("skipping participant", "participant", p, "reason", core.ErrUnknownParticipant.Error())
			continue
		}
		cal.Add(rec)
		if p != s.nodeID {
			others = append(others, p)
			s.notify(ctx, p, fmt.Sprintf("Meeting '%s' (%s) has been scheduled by %s for %s.",
				title, eventID, s.nodeID, start.Format("2006-01-02 15:04")))
		}
	}

	s.sink.Emit(core.TopicMeetingsChanged)
	s.logger.Info("meeting booked", "title", title, "event_id", eventID, "start", start, "participants", participants)

	with := strings.Join(others, ", ")
	if with == "" {
		with = "just you"
	}
	return fmt.Sprintf("Meeting '%s' scheduled for %s with %s.", title, start.Format("2006-01-02 15:04"), with)
}

func ensureMember(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
