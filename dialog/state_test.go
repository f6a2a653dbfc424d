package dialog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftFIFOOrder(t *testing.T) {
	s := NewState()
	s.StartDraft("Let's meet", []string{"date", "time"}, false, "")

	field, ok := s.CurrentField()
	require.True(t, ok)
	assert.Equal(t, "date", field)

	next, done, ok := s.RecordAnswer("2026-03-02")
	require.True(t, ok)
	assert.False(t, done)
	assert.Equal(t, "time", next)

	_, done, ok = s.RecordAnswer("14:00")
	require.True(t, ok)
	assert.True(t, done)

	d := s.Draft()
	assert.Equal(t, "2026-03-02", d.Answers["date"])
	assert.Equal(t, "14:00", d.Answers["time"])
	assert.Equal(t, "Let's meet", d.OriginalMessage)
}

func TestRecordAnswerWithoutDraft(t *testing.T) {
	s := NewState()
	_, _, ok := s.RecordAnswer("anything")
	assert.False(t, ok)
}

func TestSlotsAreMutuallyExclusive(t *testing.T) {
	s := NewState()
	s.StartDraft("meet", []string{"date"}, false, "")
	require.True(t, s.DraftActive())

	s.SetConfirmation(Confirmation{Kind: ConfirmPlanProject, ProjectID: "p1"})
	assert.False(t, s.DraftActive())
	assert.True(t, s.ConfirmationActive())

	s.StartEmailDraft("bob", "status", []string{"body"})
	assert.False(t, s.ConfirmationActive())
	assert.True(t, s.EmailActive())

	s.StartDraft("meet again", []string{"time"}, false, "")
	assert.False(t, s.EmailActive())
	assert.True(t, s.DraftActive())
}

func TestTakeConfirmationConsumesGate(t *testing.T) {
	s := NewState()
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	s.SetConfirmation(Confirmation{
		Kind:    ConfirmScheduleMeeting,
		Meeting: &PendingMeeting{Title: "Sync", Start: start, End: start.Add(time.Hour)},
	})

	c, ok := s.TakeConfirmation()
	require.True(t, ok)
	assert.Equal(t, ConfirmScheduleMeeting, c.Kind)
	require.NotNil(t, c.Meeting)
	assert.Equal(t, "Sync", c.Meeting.Title)

	_, ok = s.TakeConfirmation()
	assert.False(t, ok)
}

func TestSeedAnswerLeavesQueueUntouched(t *testing.T) {
	s := NewState()
	s.StartDraft("move the sync", []string{"date", "time"}, false, "")
	s.SeedAnswer("title", "Sync")
	s.SeedAnswer("participants", "alice, bob")

	field, ok := s.CurrentField()
	require.True(t, ok)
	assert.Equal(t, "date", field)

	d := s.Draft()
	assert.Equal(t, "Sync", d.Answers["title"])
	assert.Equal(t, "alice, bob", d.Answers["participants"])

	// Without an active draft seeding is a no-op.
	s.ClearDraft()
	s.SeedAnswer("title", "ignored")
	assert.Empty(t, s.Draft().Answers)
}

func TestSetEmailBody(t *testing.T) {
	s := NewState()
	s.SetEmailBody("ignored without draft")
	assert.Empty(t, s.Email().Body)

	s.StartEmailDraft("bob", "status", nil)
	s.SetEmailBody("All green this week.")
	assert.Equal(t, "All green this week.", s.Email().Body)
}

func TestRescheduleDraftCarriesTarget(t *testing.T) {
	s := NewState()
	s.StartDraft("move the sync", []string{"date", "time"}, true, "ev42")
	d := s.Draft()
	assert.True(t, d.Rescheduling)
	assert.Equal(t, "ev42", d.TargetEventID)
}

func TestTranscriptTrimsToWindow(t *testing.T) {
	s := NewState()
	for i := 0; i < maxTranscriptTurns+5; i++ {
		s.AppendTurn("user", fmt.Sprintf("msg %d", i))
	}
	turns := s.Transcript()
	require.Len(t, turns, maxTranscriptTurns)
	assert.Equal(t, "msg 5", turns[0].Content)
}
