package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/orgmesh/calendar"
	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/logging"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/roles"
)

// Meeting field names used by the slot-filling queue.
const (
	FieldTitle        = "title"
	FieldDate         = "date"
	FieldTime         = "time"
	FieldDuration     = "duration"
	FieldParticipants = "participants"
)

// fieldOrder fixes the order in which missing fields are asked for.
var fieldOrder = []string{FieldTitle, FieldDate, FieldTime, FieldDuration, FieldParticipants}

// fieldQuestions maps each field to its follow-up question.
var fieldQuestions = map[string]string{
	FieldDate:         "On what date should the meeting be scheduled?",
	FieldTime:         "What time should the meeting be scheduled?",
	FieldDuration:     "How long should the meeting be?",
	FieldParticipants: "Who should attend the meeting?",
	FieldTitle:        "What is the title or topic of the meeting?",
}

// Calendar intent actions.
const (
	ActionSchedule   = "schedule_meeting"
	ActionCancel     = "cancel_meeting"
	ActionList       = "list_meetings"
	ActionReschedule = "reschedule_meeting"
)

// Intent is the classification of an inbound message with respect to calendar
// handling.
type Intent struct {
	IsCalendarCommand bool     `json:"is_calendar_command"`
	Action            string   `json:"action"`
	MissingInfo       []string `json:"missing_info"`
}

// Directory resolves node ids to their handles so the scheduler can reach the
// calendars of other participants. *bus.Bus satisfies it.
type Directory interface {
	Lookup(id string) (core.Node, bool)
}

// Options configures a Scheduler.
type Options struct {
	// Logger receives structured logs. Defaults to NoOpLogger.
	Logger logging.Logger
	// Sink receives meetings-changed notifications. Defaults to NoOpSink.
	Sink core.EventSink
	// Provider is the optional external calendar backend.
	Provider calendar.Provider
	// Resolver proposes alternative slots on conflicts. Defaults to the
	// reasoner-backed resolver when a reasoner is available, otherwise to a
	// deterministic interval scan.
	Resolver ConflictResolver
	// Roster normalizes participant names. Defaults to roles.Default().
	Roster *roles.Roster
	// DefaultDuration applies when no meeting length was given.
	DefaultDuration time.Duration
	// Now supplies the clock, overridable in tests.
	Now func() time.Time
}

// Scheduler coordinates meetings for one node.
type Scheduler struct {
	nodeID   string
	state    *dialog.State
	cal      *core.Calendar
	sender   core.Sender
	dir      Directory
	rsn      reasoner.Reasoner
	provider calendar.Provider
	resolver ConflictResolver
	roster   *roles.Roster
	duration time.Duration
	logger   logging.Logger
	sink     core.EventSink
	now      func() time.Time
}

// New creates a Scheduler for the given node. rsn, dir and sender may be nil;
// the corresponding capabilities then degrade to their local fallbacks.
func New(nodeID string, state *dialog.State, cal *core.Calendar, sender core.Sender, dir Directory, rsn reasoner.Reasoner, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		DefaultDuration: time.Hour,
		Now:             time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	roster := opts.Roster
	if roster == nil {
		roster = roles.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = core.NoOpSink{}
	}
	resolver := opts.Resolver
	if resolver == nil {
		if rsn != nil {
			resolver = NewReasonerResolver(rsn)
		} else {
			resolver = NewIntervalResolver()
		}
	}
	return &Scheduler{
		nodeID:   nodeID,
		state:    state,
		cal:      cal,
		sender:   sender,
		dir:      dir,
		rsn:      rsn,
		provider: opts.Provider,
		resolver: resolver,
		roster:   roster,
		duration: opts.DefaultDuration,
		logger:   core.EnsureLogger(opts.Logger),
		sink:     sink,
		now:      opts.Now,
	}
}

// DetectIntent classifies message as a calendar command. Any reasoner or
// parse failure yields the zero Intent, which downstream treats as "not a
// calendar command".
func (s *Scheduler) DetectIntent(ctx context.Context, message string) Intent {
	if s.rsn == nil {
		return Intent{}
	}

	prompt := fmt.Sprintf(
		"Today is %s. Classify the user message below.\n\n"+
			"Message: %s\n\n"+
			"Respond with JSON only:\n"+
			"{\"is_calendar_command\": true|false, "+
			"\"action\": \"schedule_meeting\"|\"cancel_meeting\"|\"list_meetings\"|\"reschedule_meeting\"|null, "+
			"\"missing_info\": [\"time\", \"duration\", \"participants\", \"date\", \"title\"]}\n\n"+
			"missing_info lists only the details required for the action that the message does not contain.",
		s.now().Format("2006-01-02"), message)

	raw, err := s.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You classify messages for an organizational assistant. Respond with JSON only."),
		reasoner.User(prompt),
	})
	if err != nil {
		s.logger.Warn("intent detection failed", "error", err)
		return Intent{}
	}

	var intent Intent
	if err := reasoner.Unmarshal(raw, &intent); err != nil {
		s.logger.Warn("intent response unparseable", "raw", raw)
		return Intent{}
	}
	return intent
}

// HandleIntent dispatches a detected calendar intent.
func (s *Scheduler) HandleIntent(ctx context.Context, intent Intent, message string) string {
	switch intent.Action {
	case ActionSchedule:
		if len(intent.MissingInfo) > 0 {
			return s.StartDraft(message, intent.MissingInfo)
		}
		return s.CreateMeeting(ctx, message)
	case ActionList:
		return s.ListMeetings(ctx)
	case ActionCancel:
		return s.CancelMeeting(ctx, message)
	case ActionReschedule:
		return s.RescheduleMeeting(ctx, message)
	default:
		return fmt.Sprintf("Sorry, I don't know how to '%s'.", intent.Action)
	}
}

// StartDraft begins a slot-filling dialogue for the given missing fields and
// returns the first question. Fields are asked in a fixed order regardless of
// the order they were reported in.
func (s *Scheduler) StartDraft(message string, missing []string) string {
	ordered := orderFields(missing)
	if len(ordered) == 0 {
		ordered = []string{FieldTitle}
	}
	s.state.StartDraft(message, ordered, false, "")
	return "I need a bit more information to schedule the meeting. " + s.question(ordered[0], false)
}

// ContinueDraft records the answer for the current field. It either asks the
// next question or, once the queue empties, completes the pending flow.
func (s *Scheduler) ContinueDraft(ctx context.Context, answer string) string {
	next, done, ok := s.state.RecordAnswer(answer)
	if !ok {
		return "There is no meeting being scheduled right now."
	}
	draft := s.state.Draft()
	if !done {
		return s.question(next, draft.Rescheduling)
	}

	s.state.ClearDraft()
	if draft.Rescheduling {
		return s.completeReschedule(ctx, draft)
	}
	return s.CreateMeeting(ctx, combinedMessage(draft))
}

// combinedMessage folds the collected answers back into one natural-language
// request so completion reuses the regular extraction path.
func combinedMessage(draft dialog.MeetingDraft) string {
	var b strings.Builder
	b.WriteString(draft.OriginalMessage)
	if v, ok := draft.Answers[FieldTitle]; ok && v != "" {
		fmt.Fprintf(&b, " Title: %s.", v)
	}
	if v, ok := draft.Answers[FieldDate]; ok && v != "" {
		fmt.Fprintf(&b, " Date: %s.", v)
	}
	if v, ok := draft.Answers[FieldTime]; ok && v != "" {
		fmt.Fprintf(&b, " Time: %s.", v)
	}
	if v, ok := draft.Answers[FieldDuration]; ok && v != "" {
		fmt.Fprintf(&b, " Duration: %s.", v)
	}
	if v, ok := draft.Answers[FieldParticipants]; ok && v != "" {
		fmt.Fprintf(&b, " Participants: %s.", v)
	}
	return b.String()
}

// question renders the follow-up question for field, with a rescheduling hint
// when applicable.
func (s *Scheduler) question(field string, rescheduling bool) string {
	q, ok := fieldQuestions[field]
	if !ok {
		q = fmt.Sprintf("Please provide the %s of the meeting.", field)
	}
	if rescheduling {
		return q + " for rescheduling"
	}
	return q
}

func orderFields(missing []string) []string {
	want := map[string]bool{}
	for _, f := range missing {
		want[strings.ToLower(strings.TrimSpace(f))] = true
	}
	var out []string
	for _, f := range fieldOrder {
		if want[f] {
			out = append(out, f)
		}
	}
	return out
}

func (s *Scheduler) notify(ctx context.Context, recipient, text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, s.nodeID, recipient, core.InfoTag+text); err != nil {
		s.logger.Warn("notification failed", "recipient", recipient, "error", err)
	}
}

// calendarOf returns the calendar for the given participant, consulting the
// directory for foreign nodes.
func (s *Scheduler) calendarOf(id string) (*core.Calendar, bool) {
	if id == s.nodeID {
		return s.cal, true
	}
	if s.dir == nil {
		return nil, false
	}
	node, ok := s.dir.Lookup(id)
	if !ok {
		return nil, false
	}
	holder, ok := node.(core.CalendarHolder)
	if !ok {
		return nil, false
	}
	return holder.Calendar(), true
}
