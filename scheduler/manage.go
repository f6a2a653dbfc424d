package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/orgmesh/calendar"
	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/reasoner"
)

// matchThreshold is the minimum heuristic score for a meeting to count as
// matching cancellation or rescheduling criteria.
const matchThreshold = 1

// noMatchReply is the stable answer when no meeting satisfies the criteria,
// which makes repeated cancellation attempts idempotent.
const noMatchReply = "No meetings found matching criteria."

// criteria describes which meeting a cancel or reschedule request targets.
type criteria struct {
	Title            string   `json:"title"`
	WithParticipants []string `json:"with_participants"`
	Date             string   `json:"date"`
	NewDate          string   `json:"new_date"`
	NewTime          string   `json:"new_time"`
	NewDuration      int      `json:"new_duration"`
}

// ListMeetings renders the node's upcoming meetings, preferring the external
// provider when one is configured.
func (s *Scheduler) ListMeetings(ctx context.Context) string {
	now := s.now()

	if s.provider != nil {
		events, err := s.provider.ListUpcoming(ctx, 10)
		if err != nil {
			s.logger.Warn("provider listing failed, using local calendar", "error", err)
		} else {
			if len(events) == 0 {
				return "You have no upcoming meetings."
			}
			var b strings.Builder
			b.WriteString("Your upcoming meetings:")
			for i, ev := range events {
				fmt.Fprintf(&b, "\n%d. %s on %s", i+1, ev.Title, ev.Start.Format("2006-01-02 15:04"))
			}
			return b.String()
		}
	}

	var upcoming []core.MeetingRecord
	for _, rec := range s.cal.Meetings() {
		if rec.End.Before(now) {
			continue
		}
		upcoming = append(upcoming, rec)
	}
	if len(upcoming) == 0 {
		return "You have no upcoming meetings."
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Start.Before(upcoming[j].Start) })

	var b strings.Builder
	b.WriteString("Your upcoming meetings:")
	for i, rec := range upcoming {
		fmt.Fprintf(&b, "\n%d. %s on %s with %s", i+1, rec.Title, rec.Start.Format("2006-01-02 15:04"), strings.Join(rec.Participants, ", "))
	}
	return b.String()
}

// CancelMeeting extracts the target criteria, scores the local calendar and
// cancels the best match everywhere. Asking again after a successful cancel
// simply finds no match.
func (s *Scheduler) CancelMeeting(ctx context.Context, message string) string {
	crit := s.extractCriteria(ctx, message)

	target, ok := s.bestMatch(crit)
	if !ok {
		return noMatchReply
	}

	if s.provider != nil && !strings.HasPrefix(target.EventID, "local_") {
		if err := s.provider.Delete(ctx, target.EventID); err != nil {
			s.logger.Warn("provider delete failed", "event_id", target.EventID, "error", err)
		}
	}

	for _, p := range target.Participants {
		cal, found := s.calendarOf(p)
		if !found {
			continue
		}
		cal.Remove(target.EventID)
		if p != s.nodeID {
			s.notify(ctx, p, fmt.Sprintf("Meeting '%s' on %s has been cancelled by %s.",
				target.Title, target.Start.Format("2006-01-02 15:04"), s.nodeID))
		}
	}
	// The requester may not be listed as a participant of a foreign record.
	s.cal.Remove(target.EventID)

	s.sink.Emit(core.TopicMeetingsChanged)
	s.logger.Info("meeting cancelled", "title", target.Title, "event_id", target.EventID)
	return fmt.Sprintf("Cancelled meeting '%s' scheduled for %s.", target.Title, target.Start.Format("2006-01-02 15:04"))
}

// RescheduleMeeting moves an existing meeting. Without a usable new time the
// dialogue switches into a rescheduling draft for the target event.
func (s *Scheduler) RescheduleMeeting(ctx context.Context, message string) string {
	crit := s.extractCriteria(ctx, message)

	target, ok := s.bestMatch(crit)
	if !ok {
		return noMatchReply
	}

	if crit.NewDate == "" && crit.NewTime == "" {
		return s.startRescheduleDraft(message, target)
	}

	now := s.now()
	date := crit.NewDate
	if date == "" {
		date = target.Start.Format("2006-01-02")
	}
	clock := crit.NewTime
	if clock == "" {
		clock = target.Start.Format("15:04")
	}
	newStart, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, now.Location())
	if err != nil {
		return s.startRescheduleDraft(message, target)
	}
	// A time that already passed silently rolls over to the next day.
	for newStart.Before(now) {
		newStart = newStart.AddDate(0, 0, 1)
	}

	duration := target.End.Sub(target.Start)
	if crit.NewDuration > 0 {
		duration = time.Duration(crit.NewDuration) * time.Minute
	}
	return s.applyReschedule(ctx, target, newStart, newStart.Add(duration))
}

func (s *Scheduler) startRescheduleDraft(message string, target core.MeetingRecord) string {
	s.state.StartDraft(message, []string{FieldDate, FieldTime}, true, target.EventID)
	return fmt.Sprintf("Rescheduling '%s'. %s", target.Title, s.question(FieldDate, true))
}

// completeReschedule finishes a rescheduling draft once date and time were
// collected.
func (s *Scheduler) completeReschedule(ctx context.Context, draft dialog.MeetingDraft) string {
	target := s.cal.FindByEvent(draft.TargetEventID)
	if target == nil {
		return noMatchReply
	}

	now := s.now()
	newStart, err := time.ParseInLocation("2006-01-02 15:04",
		strings.TrimSpace(draft.Answers[FieldDate])+" "+strings.TrimSpace(draft.Answers[FieldTime]), now.Location())
	if err != nil {
		s.state.StartDraft(draft.OriginalMessage, []string{FieldDate, FieldTime}, true, draft.TargetEventID)
		return "I couldn't make sense of that date and time. " + s.question(FieldDate, true) + futureNote
	}
	for newStart.Before(now) {
		newStart = newStart.AddDate(0, 0, 1)
	}

	duration := target.End.Sub(target.Start)
	return s.applyReschedule(ctx, *target, newStart, newStart.Add(duration))
}

func (s *Scheduler) applyReschedule(ctx context.Context, target core.MeetingRecord, newStart, newEnd time.Time) string {
	if s.provider != nil && !strings.HasPrefix(target.EventID, "local_") {
		_, err := s.provider.Update(ctx, target.EventID, calendar.Event{
			Title:     target.Title,
			Start:     newStart,
			End:       newEnd,
			Attendees: target.Participants,
		})
		if err != nil {
			s.logger.Warn("provider update failed", "event_id", target.EventID, "error", err)
		}
	}

	move := func(rec *core.MeetingRecord) {
		rec.Start = newStart
		rec.End = newEnd
	}
	for _, p := range target.Participants {
		cal, found := s.calendarOf(p)
		if !found {
			continue
		}
		cal.Update(target.EventID, move)
		if p != s.nodeID {
			s.notify(ctx, p, fmt.Sprintf("Meeting '%s' has been rescheduled to %s by %s.",
				target.Title, newStart.Format("2006-01-02 15:04"), s.nodeID))
		}
	}
	s.cal.Update(target.EventID, move)

	s.sink.Emit(core.TopicMeetingsChanged)
	s.logger.Info("meeting rescheduled", "title", target.Title, "event_id", target.EventID, "start", newStart)
	return fmt.Sprintf("Rescheduled meeting '%s' to %s.", target.Title, newStart.Format("2006-01-02 15:04"))
}

// CreateTaskReminder puts a reminder for the task on the external calendar.
// It is fire and forget; without a provider it is a no-op.
func (s *Scheduler) CreateTaskReminder(ctx context.Context, task core.Task) {
	if s.provider == nil {
		s.logger.Debug("skipping task reminder", "task_id", task.ID, "reason", core.ErrProviderUnavailable.Error())
		return
	}
	_, err := s.provider.Insert(ctx, calendar.Event{
		Title:       "Task due: " + task.Title,
		Description: task.Description,
		Start:       task.DueAt,
		End:         task.DueAt.Add(30 * time.Minute),
		Attendees:   []string{task.AssignedTo},
	})
	if err != nil {
		s.logger.Warn("task reminder failed", "task_id", task.ID, "error", err)
		return
	}
	s.logger.Info("task reminder created", "task_id", task.ID, "due", task.DueAt)
}

// extractCriteria pulls target criteria out of a cancel or reschedule
// request. Without a usable reasoner answer the whole message serves as a
// title filter.
func (s *Scheduler) extractCriteria(ctx context.Context, message string) criteria {
	if s.rsn == nil {
		return criteria{Title: message}
	}

	prompt := fmt.Sprintf(
		"Today is %s. Extract which meeting the request below refers to, and any new time if it is a rescheduling request.\n\n"+
			"Request: %s\n\n"+
			"Respond with JSON only:\n"+
			"{\"title\": \"...\", \"with_participants\": [\"...\"], \"date\": \"YYYY-MM-DD\", "+
			"\"new_date\": \"YYYY-MM-DD\", \"new_time\": \"HH:MM\", \"new_duration\": <minutes>}\n\n"+
			"Use empty values for anything the request does not specify.",
		s.now().Format("2006-01-02"), message)

	raw, err := s.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You extract meeting references. Respond with JSON only."),
		reasoner.User(prompt),
	})
	if err != nil {
		s.logger.Warn("criteria extraction failed", "error", err)
		return criteria{Title: message}
	}

	var crit criteria
	if err := reasoner.Unmarshal(raw, &crit); err != nil {
		s.logger.Warn("criteria response unparseable", "raw", raw)
		return criteria{Title: message}
	}
	return crit
}

// bestMatch scores every local meeting against the criteria and returns the
// highest scorer at or above the threshold. Ties keep the earlier record.
func (s *Scheduler) bestMatch(crit criteria) (core.MeetingRecord, bool) {
	var (
		best      core.MeetingRecord
		bestScore int
		found     bool
	)
	now := s.now()
	for _, rec := range s.cal.Meetings() {
		// Only upcoming meetings can be targeted.
		if rec.End.Before(now) {
			continue
		}
		score := matchScore(rec, crit)
		if score >= matchThreshold && score > bestScore {
			best = rec
			bestScore = score
			found = true
		}
	}
	return best, found
}

// matchScore rates how well a record matches the criteria: full title
// substring 3, any shared title word 1, each matched attendee 2, matching
// date 4.
func matchScore(rec core.MeetingRecord, crit criteria) int {
	score := 0
	recTitle := strings.ToLower(rec.Title)

	if title := strings.ToLower(strings.TrimSpace(crit.Title)); title != "" {
		if strings.Contains(recTitle, title) {
			score += 3
		} else {
			for _, word := range strings.Fields(title) {
				if strings.Contains(recTitle, word) {
					score++
					break
				}
			}
		}
	}

	for _, want := range crit.WithParticipants {
		for _, have := range rec.Participants {
			if strings.EqualFold(strings.TrimSpace(want), have) {
				score += 2
				break
			}
		}
	}

	if crit.Date != "" && rec.Start.Format("2006-01-02") == crit.Date {
		score += 4
	}
	return score
}
