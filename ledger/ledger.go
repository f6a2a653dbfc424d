package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/logging"
)

// Options configures a Ledger.
type Options struct {
	// Logger receives structured logs. Defaults to NoOpLogger.
	Logger logging.Logger
	// Sink receives tasks-changed notifications. Defaults to NoOpSink.
	Sink core.EventSink
}

// Ledger is the append-only ordered task collection.
type Ledger struct {
	mu     sync.RWMutex
	tasks  []core.Task
	sender core.Sender
	logger logging.Logger
	sink   core.EventSink
}

// New creates a Ledger. sender may be nil, in which case assignees are not
// notified.
func New(sender core.Sender, optFns ...func(o *Options)) *Ledger {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	sink := opts.Sink
	if sink == nil {
		sink = core.NoOpSink{}
	}
	return &Ledger{
		tasks:  []core.Task{},
		sender: sender,
		logger: core.EnsureLogger(opts.Logger),
		sink:   sink,
	}
}

// Append stores the task, notifies every assignee over the bus and emits a
// tasks-changed event. Notification failures never fail the append.
func (l *Ledger) Append(ctx context.Context, task core.Task) {
	if task.ID == "" {
		task.ID = core.NewID()
	}

	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	l.logger.Info("task appended", "task_id", task.ID, "assigned_to", task.AssignedTo, "project_id", task.ProjectID)

	if l.sender != nil {
		notice := fmt.Sprintf("%s New task assigned to you: %s (due %s, priority %s)",
			core.InfoTag, task.Title, task.DueAt.Format("2006-01-02"), task.Priority)
		for _, assignee := range splitAssignees(task.AssignedTo) {
			if err := l.sender.Send(ctx, core.SystemSender, assignee, notice); err != nil {
				l.logger.Warn("task notification failed", "assignee", assignee, "error", err)
			}
		}
	}

	l.sink.Emit(core.TopicTasksChanged)
}

// TasksFor returns every task assigned to nodeID, either directly or as a
// member of a comma-joined assignee list. Matching is case-insensitive.
func (l *Ledger) TasksFor(nodeID string) []core.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Task
	for _, t := range l.tasks {
		if assignedTo(t, nodeID) {
			out = append(out, t)
		}
	}
	return out
}

// All returns a copy of every task in insertion order.
func (l *Ledger) All() []core.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Len returns the number of tasks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tasks)
}

func assignedTo(t core.Task, nodeID string) bool {
	for _, a := range splitAssignees(t.AssignedTo) {
		if strings.EqualFold(a, nodeID) {
			return true
		}
	}
	return false
}

func splitAssignees(assignedTo string) []string {
	parts := strings.Split(assignedTo, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
