package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/orgmesh/core"
)

type sentMessage struct {
	sender    string
	recipient string
	content   string
}

type stubSender struct {
	sent []sentMessage
}

func (s *stubSender) Send(_ context.Context, sender, recipient, content string) error {
	s.sent = append(s.sent, sentMessage{sender: sender, recipient: recipient, content: content})
	return nil
}

func TestAppendNotifiesAssignee(t *testing.T) {
	sender := &stubSender{}
	var topics []string
	l := New(sender, func(o *Options) {
		o.Sink = core.SinkFunc(func(topic string) { topics = append(topics, topic) })
	})

	l.Append(context.Background(), core.Task{
		Title:      "Write report",
		AssignedTo: "marketing",
		DueAt:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Priority:   core.PriorityHigh,
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, core.SystemSender, sender.sent[0].sender)
	assert.Equal(t, "marketing", sender.sent[0].recipient)
	assert.True(t, strings.HasPrefix(sender.sent[0].content, core.InfoTag))
	assert.Contains(t, sender.sent[0].content, "Write report")
	assert.Equal(t, []string{core.TopicTasksChanged}, topics)
}

func TestAppendNotifiesEveryListedAssignee(t *testing.T) {
	sender := &stubSender{}
	l := New(sender)

	l.Append(context.Background(), core.Task{Title: "Kickoff", AssignedTo: "engineering, design"})

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "engineering", sender.sent[0].recipient)
	assert.Equal(t, "design", sender.sent[1].recipient)
}

func TestTasksForMatchesCommaJoinedLists(t *testing.T) {
	l := New(nil)
	ctx := context.Background()
	l.Append(ctx, core.Task{Title: "a", AssignedTo: "engineering"})
	l.Append(ctx, core.Task{Title: "b", AssignedTo: "engineering, design"})
	l.Append(ctx, core.Task{Title: "c", AssignedTo: "design"})
	l.Append(ctx, core.Task{Title: "d", AssignedTo: "Engineering"})

	got := l.TasksFor("engineering")
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "b", got[1].Title)
	assert.Equal(t, "d", got[2].Title)

	assert.Empty(t, l.TasksFor("hr"))
}

func TestAppendAssignsIDWhenMissing(t *testing.T) {
	l := New(nil)
	l.Append(context.Background(), core.Task{Title: "a", AssignedTo: "hr"})
	all := l.All()
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
}
