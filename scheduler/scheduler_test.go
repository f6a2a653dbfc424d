package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/roles"
)

func testNow() time.Time {
	return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

type stubNode struct {
	id  string
	cal *core.Calendar
}

func (n *stubNode) ID() string   { return n.id }
func (n *stubNode) Name() string { return n.id }
func (n *stubNode) Receive(context.Context, string, string) string {
	return ""
}
func (n *stubNode) Calendar() *core.Calendar { return n.cal }

type stubDir map[string]core.Node

func (d stubDir) Lookup(id string) (core.Node, bool) {
	n, ok := d[id]
	return n, ok
}

type sentMsg struct {
	Recipient string
	Content   string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (r *recordingSender) Send(_ context.Context, _, recipient, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMsg{Recipient: recipient, Content: content})
	return nil
}

func (r *recordingSender) all() []sentMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMsg(nil), r.sent...)
}

type fixture struct {
	sched  *Scheduler
	state  *dialog.State
	cal    *core.Calendar
	alice  *stubNode
	bob    *stubNode
	sender *recordingSender
}

func newFixture(t *testing.T, rsn reasoner.Reasoner) *fixture {
	t.Helper()
	state := dialog.NewState()
	cal := core.NewCalendar()
	alice := &stubNode{id: "alice", cal: core.NewCalendar()}
	bob := &stubNode{id: "bob", cal: core.NewCalendar()}
	sender := &recordingSender{}
	dir := stubDir{"alice": alice, "bob": bob}

	sched := New("ceo", state, cal, sender, dir, rsn, func(o *Options) {
		o.Roster = roles.NewRoster(
			roles.Role{ID: "alice", Title: "Engineering Lead"},
			roles.Role{ID: "bob", Title: "Marketing Lead"},
			roles.Role{ID: "ceo", Title: "CEO"},
		)
		o.Resolver = NewIntervalResolver()
		o.Now = testNow
	})
	return &fixture{sched: sched, state: state, cal: cal, alice: alice, bob: bob, sender: sender}
}

func detailsJSON(title, date, clock string, duration int, participants ...string) string {
	quoted := make([]string, len(participants))
	for i, p := range participants {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf(`{"title": %q, "participants": [%s], "date": %q, "time": %q, "duration": %d}`,
		title, strings.Join(quoted, ", "), date, clock, duration)
}

func TestDraftFillsDateThenTimeAndBooksEverywhere(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(detailsJSON("Roadmap sync", "2026-03-03", "10:00", 60, "alice", "bob"))
	f := newFixture(t, mock)

	q := f.sched.StartDraft("Schedule a roadmap sync with alice and bob", []string{"time", "date"})
	assert.Contains(t, q, "On what date should the meeting be scheduled?")

	q = f.sched.ContinueDraft(context.Background(), "2026-03-03")
	assert.Equal(t, "What time should the meeting be scheduled?", q)

	reply := f.sched.ContinueDraft(context.Background(), "10:00")
	assert.Contains(t, reply, "Meeting 'Roadmap sync' scheduled for 2026-03-03 10:00")
	assert.False(t, f.state.DraftActive())

	require.Equal(t, 1, f.cal.Len())
	require.Equal(t, 1, f.alice.cal.Len())
	require.Equal(t, 1, f.bob.cal.Len())

	own := f.cal.Meetings()[0]
	assert.True(t, strings.HasPrefix(own.EventID, "local_"))
	assert.Equal(t, own.EventID, f.alice.cal.Meetings()[0].EventID)
	assert.Equal(t, own.EventID, f.bob.cal.Meetings()[0].EventID)
	assert.ElementsMatch(t, []string{"alice", "bob", "ceo"}, own.Participants)

	sent := f.sender.all()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.True(t, strings.HasPrefix(msg.Content, core.InfoTag))
		assert.Contains(t, msg.Content, "has been scheduled by ceo")
	}
}

func TestCreateMeetingValidation(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(detailsJSON("", "2026-03-03", "10:00", 60, "alice")).
		QueueReply(detailsJSON("Sync", "2026-03-03", "10:00", 60)).
		QueueReply(detailsJSON("Sync", "2026-03-03", "", 60, "alice")).
		QueueReply(detailsJSON("Sync", "2026-03-03", "10:00", 60, "mallory"))
	f := newFixture(t, mock)
	ctx := context.Background()

	assert.Equal(t, "Cannot schedule meeting: missing title.", f.sched.CreateMeeting(ctx, "x"))
	assert.Equal(t, "Cannot schedule meeting: missing participants.", f.sched.CreateMeeting(ctx, "x"))
	assert.Equal(t, "Cannot schedule meeting: missing time.", f.sched.CreateMeeting(ctx, "x"))
	assert.Equal(t, "Cannot schedule meeting: none of the participants are known.", f.sched.CreateMeeting(ctx, "x"))

	// No rejected request leaves a trace on any calendar.
	assert.Equal(t, 0, f.cal.Len())
	assert.Equal(t, 0, f.alice.cal.Len())
}

func TestCreateMeetingPastTimeReopensDraft(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(detailsJSON("Retro", "2026-03-01", "10:00", 60, "alice")).
		QueueReply(detailsJSON("Retro", "2026-03-04", "11:00", 60, "alice"))
	f := newFixture(t, mock)
	ctx := context.Background()

	reply := f.sched.CreateMeeting(ctx, "Schedule a retro with alice yesterday at 10")
	assert.Contains(t, reply, "On what date should the meeting be scheduled?")
	assert.Contains(t, reply, "future date and time")
	require.True(t, f.state.DraftActive())

	draft := f.state.Draft()
	assert.Equal(t, "Retro", draft.Answers["title"])
	assert.Contains(t, draft.Answers["participants"], "alice")
	assert.Equal(t, []string{"date", "time"}, draft.Missing)

	f.sched.ContinueDraft(ctx, "2026-03-04")
	reply = f.sched.ContinueDraft(ctx, "11:00")
	assert.Contains(t, reply, "Meeting 'Retro' scheduled for 2026-03-04 11:00")
}

func TestConflictAsksForConfirmationThenBooks(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(detailsJSON("Planning", "2026-03-03", "14:30", 60, "alice"))
	f := newFixture(t, mock)
	ctx := context.Background()

	f.alice.cal.Add(core.MeetingRecord{
		Title:        "Standup",
		Start:        time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC),
		Participants: []string{"alice"},
		EventID:      "local_existing",
	})

	reply := f.sched.CreateMeeting(ctx, "Plan a meeting with alice at 14:30")
	assert.Contains(t, reply, "Conflict found for alice.")
	assert.Contains(t, reply, "2026-03-03 15:01")
	assert.Contains(t, reply, "(yes/no)")

	conf, ok := f.state.TakeConfirmation()
	require.True(t, ok)
	require.Equal(t, dialog.ConfirmScheduleMeeting, conf.Kind)
	require.NotNil(t, conf.Meeting)

	booked := f.sched.BookPending(ctx, *conf.Meeting)
	assert.Contains(t, booked, "Meeting 'Planning' scheduled for 2026-03-03 15:01")
	assert.Equal(t, 2, f.alice.cal.Len())
	assert.Equal(t, 1, f.cal.Len())
}

func TestBoundaryTouchingWindowsConflict(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(detailsJSON("Handoff", "2026-03-03", "15:00", 60, "alice")).
		QueueReply(detailsJSON("Handoff", "2026-03-03", "15:01", 59, "alice"))
	f := newFixture(t, mock)
	ctx := context.Background()

	f.alice.cal.Add(core.MeetingRecord{
		Title:        "Standup",
		Start:        time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC),
		Participants: []string{"alice"},
		EventID:      "local_existing",
	})

	// 15:00 start touches the 15:00 end of the existing meeting.
	reply := f.sched.CreateMeeting(ctx, "meet alice at 15:00")
	assert.Contains(t, reply, "Conflict found for alice.")
	f.state.TakeConfirmation()

	// 15:01 clears the boundary and books directly.
	reply = f.sched.CreateMeeting(ctx, "meet alice at 15:01")
	assert.Contains(t, reply, "Meeting 'Handoff' scheduled for 2026-03-03 15:01")
}

func TestCancelMeetingIsIdempotent(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(`{"title": "marketing sync", "with_participants": [], "date": ""}`).
		QueueReply(`{"title": "marketing sync", "with_participants": [], "date": ""}`)
	f := newFixture(t, mock)
	ctx := context.Background()

	rec := core.MeetingRecord{
		Title:        "Marketing Sync",
		Start:        time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo", "alice"},
		EventID:      "local_m1",
	}
	f.cal.Add(rec)
	f.alice.cal.Add(rec)

	reply := f.sched.CancelMeeting(ctx, "cancel the marketing sync")
	assert.Contains(t, reply, "Cancelled meeting 'Marketing Sync'")
	assert.Equal(t, 0, f.cal.Len())
	assert.Equal(t, 0, f.alice.cal.Len())

	sent := f.sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice", sent[0].Recipient)
	assert.Contains(t, sent[0].Content, "has been cancelled by ceo")

	reply = f.sched.CancelMeeting(ctx, "cancel the marketing sync")
	assert.Equal(t, "No meetings found matching criteria.", reply)
}

func TestCancelMeetingSkipsPastMeetings(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(`{"title": "sync", "with_participants": [], "date": ""}`)
	f := newFixture(t, mock)
	ctx := context.Background()

	f.cal.Add(core.MeetingRecord{
		Title:        "Sync",
		Start:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo"},
		EventID:      "local_past",
	})
	f.cal.Add(core.MeetingRecord{
		Title:        "Sync",
		Start:        time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo"},
		EventID:      "local_upcoming",
	})

	reply := f.sched.CancelMeeting(ctx, "cancel the sync")
	assert.Contains(t, reply, "Cancelled meeting 'Sync' scheduled for 2026-03-03 10:00")
	assert.Nil(t, f.cal.FindByEvent("local_upcoming"))
	assert.NotNil(t, f.cal.FindByEvent("local_past"))
}

func TestReschedulePastTimeRollsForward(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(`{"title": "sync", "new_date": "2026-03-01", "new_time": "08:00"}`)
	f := newFixture(t, mock)
	ctx := context.Background()

	rec := core.MeetingRecord{
		Title:        "Sync",
		Start:        time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo", "alice"},
		EventID:      "local_m1",
	}
	f.cal.Add(rec)
	f.alice.cal.Add(rec)

	reply := f.sched.RescheduleMeeting(ctx, "move the sync to the 1st at 8am")
	assert.Contains(t, reply, "Rescheduled meeting 'Sync' to 2026-03-03 08:00")

	moved := f.cal.FindByEvent("local_m1")
	require.NotNil(t, moved)
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), moved.Start)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), moved.End)
	assert.Equal(t, moved.Start, f.alice.cal.FindByEvent("local_m1").Start)
}

func TestRescheduleWithoutNewTimeStartsDraft(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(`{"title": "sync"}`)
	f := newFixture(t, mock)
	ctx := context.Background()

	rec := core.MeetingRecord{
		Title:        "Sync",
		Start:        time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo"},
		EventID:      "local_m1",
	}
	f.cal.Add(rec)

	reply := f.sched.RescheduleMeeting(ctx, "move the sync")
	assert.Contains(t, reply, "On what date should the meeting be scheduled? for rescheduling")
	require.True(t, f.state.DraftActive())

	f.sched.ContinueDraft(ctx, "2026-03-05")
	reply = f.sched.ContinueDraft(ctx, "09:30")
	assert.Contains(t, reply, "Rescheduled meeting 'Sync' to 2026-03-05 09:30")

	moved := f.cal.FindByEvent("local_m1")
	require.NotNil(t, moved)
	assert.Equal(t, time.Hour, moved.End.Sub(moved.Start))
}

func TestListMeetingsLocal(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, "You have no upcoming meetings.", f.sched.ListMeetings(context.Background()))

	f.cal.Add(core.MeetingRecord{
		Title:        "Later",
		Start:        time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC),
		Participants: []string{"ceo"},
		EventID:      "local_a",
	})
	f.cal.Add(core.MeetingRecord{
		Title:        "Sooner",
		Start:        time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo"},
		EventID:      "local_b",
	})
	f.cal.Add(core.MeetingRecord{
		Title:        "Over",
		Start:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		Participants: []string{"ceo"},
		EventID:      "local_c",
	})

	got := f.sched.ListMeetings(context.Background())
	assert.Contains(t, got, "1. Sooner on 2026-03-03 10:00")
	assert.Contains(t, got, "2. Later on 2026-03-03 14:00")
	assert.NotContains(t, got, "Over")
}

func TestDetectIntent(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply(`{"is_calendar_command": true, "action": "schedule_meeting", "missing_info": ["date", "time"]}`).
		QueueReply("that is not json at all")
	f := newFixture(t, mock)
	ctx := context.Background()

	intent := f.sched.DetectIntent(ctx, "set up a meeting with alice")
	assert.True(t, intent.IsCalendarCommand)
	assert.Equal(t, ActionSchedule, intent.Action)
	assert.Equal(t, []string{"date", "time"}, intent.MissingInfo)

	intent = f.sched.DetectIntent(ctx, "how is the weather")
	assert.False(t, intent.IsCalendarCommand)
}

func TestHandleIntentUnknownAction(t *testing.T) {
	f := newFixture(t, nil)
	got := f.sched.HandleIntent(context.Background(), Intent{IsCalendarCommand: true, Action: "summon_meeting"}, "x")
	assert.Equal(t, "Sorry, I don't know how to 'summon_meeting'.", got)
}

func TestIntervalResolver(t *testing.T) {
	busy := map[string][]core.MeetingRecord{
		"alice": {{
			Title: "Standup",
			Start: time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC),
		}},
	}
	r := NewIntervalResolver()

	res, err := r.Resolve(context.Background(),
		busy,
		time.Date(2026, 3, 3, 14, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, res.Conflict)
	assert.Equal(t, time.Date(2026, 3, 3, 15, 1, 0, 0, time.UTC), res.ProposedStart)

	res, err = r.Resolve(context.Background(),
		busy,
		time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, res.Conflict)
	assert.Equal(t, time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC), res.ProposedStart)
}

func TestReasonerResolver(t *testing.T) {
	mock := reasoner.NewMock().
		QueueReply("```json\n{\"exist_conflict\": true, \"proposed_start_time\": \"2026-03-03T16:00:00\"}\n```").
		QueueReply("no usable json here")
	r := NewReasonerResolver(mock)
	ctx := context.Background()
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)

	res, err := r.Resolve(ctx, nil, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, res.Conflict)
	assert.Equal(t, time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC), res.ProposedStart)

	_, err = r.Resolve(ctx, nil, start, start.Add(time.Hour))
	var parseErr *reasoner.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
