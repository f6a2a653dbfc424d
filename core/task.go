package core

import "time"

// Priority classifies the urgency of a task.
type Priority string

const (
	// PriorityHigh marks urgent tasks.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityLow marks background tasks.
	PriorityLow Priority = "low"
)

// NormalizePriority maps arbitrary reasoner output onto a known Priority,
// defaulting to medium.
func NormalizePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// Task is a unit of work produced by the planner. AssignedTo holds either a
// single node id or a comma-joined list of role names; never mutated after
// creation.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at"`
	AssignedTo  string    `json:"assigned_to"`
	Priority    Priority  `json:"priority"`
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
