package core

import "time"

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectPendingParticipants awaits participant confirmation.
	ProjectPendingParticipants ProjectStatus = "pending_participants"
	// ProjectPlanning means plan generation is in flight.
	ProjectPlanning ProjectStatus = "planning"
	// ProjectPlanGenerated means a plan exists but tasks do not yet.
	ProjectPlanGenerated ProjectStatus = "plan_generated"
	// ProjectTasksGenerated is the terminal success state.
	ProjectTasksGenerated ProjectStatus = "tasks_generated"
	// ProjectFailedNoParticipants records finalization with an empty participant set.
	ProjectFailedNoParticipants ProjectStatus = "failed_no_participants"
	// ProjectPlanningFailedParseError records an unusable planning response.
	ProjectPlanningFailedParseError ProjectStatus = "planning_failed_parse_error"
	// ProjectPlanningFailedNoSteps records a plan with an empty step list.
	ProjectPlanningFailedNoSteps ProjectStatus = "planning_failed_no_steps"
	// ProjectTaskGenerationFailed records step iteration yielding zero tasks.
	ProjectTaskGenerationFailed ProjectStatus = "task_generation_failed"
)

// PlanStep is a named stage of a project plan. Responsible must be a subset
// of the owning project's participants.
type PlanStep struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Responsible []string `json:"responsible"`
}

// Project tracks one planning workflow. It belongs to exactly one node's
// planner; Participants has set semantics (membership, not ownership).
type Project struct {
	ID           string        `json:"id"`
	Objective    string        `json:"objective"`
	Steps        []PlanStep    `json:"steps,omitempty"`
	Participants []string      `json:"participants"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewProject creates a project in the pending_participants state.
func NewProject(id, objective string) *Project {
	return &Project{
		ID:           id,
		Objective:    objective,
		Participants: []string{},
		Status:       ProjectPendingParticipants,
		CreatedAt:    time.Now().UTC(),
	}
}

// HasParticipant reports membership of id in the participant set.
func (p *Project) HasParticipant(id string) bool {
	for _, existing := range p.Participants {
		if existing == id {
			return true
		}
	}
	return false
}

// AddParticipant inserts id into the participant set, preserving set semantics.
// It reports whether the set changed.
func (p *Project) AddParticipant(id string) bool {
	if p.HasParticipant(id) {
		return false
	}
	p.Participants = append(p.Participants, id)
	return true
}

// Clone returns a deep copy so query surfaces never leak internal slices.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Participants = append([]string(nil), p.Participants...)
	cp.Steps = make([]PlanStep, len(p.Steps))
	for i, s := range p.Steps {
		s.Responsible = append([]string(nil), s.Responsible...)
		cp.Steps[i] = s
	}
	return &cp
}
