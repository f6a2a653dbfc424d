package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/internal/util"
	"github.com/hupe1980/orgmesh/ledger"
	"github.com/hupe1980/orgmesh/logging"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/roles"
)

// maxCandidates caps the number of suggested participants per project.
const maxCandidates = 3

// ReminderFunc schedules a calendar reminder for a freshly created task.
// Failures are logged by the implementation and never surface here.
type ReminderFunc func(ctx context.Context, task core.Task)

// Options configures a Planner.
type Options struct {
	// Logger receives structured logs. Defaults to NoOpLogger.
	Logger logging.Logger
	// Sink receives projects-changed notifications. Defaults to NoOpSink.
	Sink core.EventSink
	// Roster resolves participant names. Defaults to roles.Default().
	Roster *roles.Roster
	// Reminder is invoked fire-and-forget for every generated task.
	Reminder ReminderFunc
	// UserID stamps generated tasks. Defaults to the owning node id.
	UserID string
	// Now supplies the clock, overridable in tests.
	Now func() time.Time
}

// Planner owns the project lifecycle for one node: candidate suggestion,
// participant confirmation, plan generation and task emission.
type Planner struct {
	nodeID   string
	userID   string
	mu       sync.RWMutex
	projects map[string]*core.Project
	roster   *roles.Roster
	rsn      reasoner.Reasoner
	ledger   *ledger.Ledger
	state    *dialog.State
	reminder ReminderFunc
	logger   logging.Logger
	sink     core.EventSink
	now      func() time.Time
}

// New creates a Planner for the given node. rsn may be nil; lifecycle stages
// that need it then fail with their documented statuses instead of panicking.
func New(nodeID string, rsn reasoner.Reasoner, ld *ledger.Ledger, state *dialog.State, optFns ...func(o *Options)) *Planner {
	opts := Options{
		UserID: nodeID,
		Now:    time.Now,
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
	return &Planner{
		nodeID:   nodeID,
		userID:   opts.UserID,
		projects: map[string]*core.Project{},
		roster:   roster,
		rsn:      rsn,
		ledger:   ld,
		state:    state,
		reminder: opts.Reminder,
		logger:   core.EnsureLogger(opts.Logger),
		sink:     sink,
		now:      opts.Now,
	}
}

// Initiate creates (or resets) the project, suggests up to three candidate
// participants and installs the confirmation gate so a plain "yes" finalizes.
func (p *Planner) Initiate(ctx context.Context, projectID, objective string) string {
	project := core.NewProject(projectID, objective)

	p.mu.Lock()
	p.projects[projectID] = project
	p.mu.Unlock()
	p.sink.Emit(core.TopicProjectsChanged)

	p.logger.Info("project initiated", "project_id", projectID, "node_id", p.nodeID)

	// Candidates are suggestions only; the participant set stays empty until
	// the user adds members explicitly.
	candidates := p.suggestCandidates(ctx, objective)

	if p.state != nil {
		p.state.SetConfirmation(dialog.Confirmation{
			Kind:      dialog.ConfirmPlanProject,
			ProjectID: projectID,
		})
	}

	payload := p.describeCandidates(candidates)
	return fmt.Sprintf("Here are the best-suited candidates for your project '%s':\n%s\n"+
		"Add participants with 'add <role> to project %s', then reply 'yes' to finalize.",
		projectID, payload, projectID)
}

// AddParticipant resolves name against the roster and adds it to the project.
func (p *Planner) AddParticipant(projectID, name string) string {
	role, ok := p.roster.Resolve(name)
	if !ok {
		return fmt.Sprintf("I don't know any role matching '%s'.", strings.TrimSpace(name))
	}

	var (
		found        bool
		changed      bool
		participants []string
	)
	p.withProject(projectID, func(pr *core.Project) {
		found = true
		changed = pr.AddParticipant(role.ID)
		participants = append([]string(nil), pr.Participants...)
	})
	if !found {
		return fmt.Sprintf("Project '%s' not found.", projectID)
	}
	if changed {
		p.sink.Emit(core.TopicProjectsChanged)
	}
	return fmt.Sprintf("Added %s to project %s. Current participants: %s.",
		role.ID, projectID, strings.Join(participants, ", "))
}

// Finalize locks the participant set and runs planning plus task generation.
// An empty participant set fails the project immediately, without consulting
// the reasoner.
func (p *Planner) Finalize(ctx context.Context, projectID string) string {
	p.mu.Lock()
	project, ok := p.projects[projectID]
	if !ok {
		p.mu.Unlock()
		return fmt.Sprintf("Project '%s' not found.", projectID)
	}
	if project.Status != core.ProjectPendingParticipants {
		status := project.Status
		p.mu.Unlock()
		return fmt.Sprintf("Project '%s' is not awaiting participant confirmation. Current status: %s.", projectID, status)
	}
	if len(project.Participants) == 0 {
		project.Status = core.ProjectFailedNoParticipants
		p.mu.Unlock()
		p.sink.Emit(core.TopicProjectsChanged)
		p.logger.Warn("finalize without participants", "project_id", projectID)
		return fmt.Sprintf("Cannot plan project '%s': no participants confirmed.", projectID)
	}
	project.Status = core.ProjectPlanning
	snapshot := project.Clone()
	p.mu.Unlock()
	p.sink.Emit(core.TopicProjectsChanged)

	steps, failStatus, failMsg := p.generatePlan(ctx, snapshot)
	if failStatus != "" {
		p.setStatus(projectID, failStatus)
		return failMsg
	}

	p.withProject(projectID, func(pr *core.Project) {
		pr.Steps = steps
		pr.Status = core.ProjectPlanGenerated
	})
	p.sink.Emit(core.TopicProjectsChanged)
	p.logger.Info("plan generated", "project_id", projectID, "steps", len(steps))

	taskMsg := p.GenerateTasks(ctx, projectID)
	return fmt.Sprintf("Plan for project '%s' has %d steps. %s", projectID, len(steps), taskMsg)
}

// GenerateTasks turns the stored plan steps into concrete tasks through the
// create_task function contract, one reasoner call per step. Steps that fail
// are skipped; the project only fails when every step produced nothing.
func (p *Planner) GenerateTasks(ctx context.Context, projectID string) string {
	p.mu.RLock()
	project, ok := p.projects[projectID]
	var snapshot *core.Project
	if ok {
		snapshot = project.Clone()
	}
	p.mu.RUnlock()

	if !ok {
		return fmt.Sprintf("Project '%s' not found.", projectID)
	}
	if len(snapshot.Steps) == 0 {
		return fmt.Sprintf("Project '%s' has no plan yet. Finalize participants first.", projectID)
	}

	total := 0
	for _, step := range snapshot.Steps {
		tasks, err := p.tasksForStep(ctx, snapshot, step)
		if err != nil {
			p.logger.Warn("task generation failed for step", "project_id", projectID, "step", step.Name, "error", err)
			continue
		}
		for _, task := range tasks {
			if p.ledger != nil {
				p.ledger.Append(ctx, task)
			}
			if p.reminder != nil {
				p.reminder(ctx, task)
			}
			total++
		}
	}

	if total == 0 {
		p.setStatus(projectID, core.ProjectTaskGenerationFailed)
		return fmt.Sprintf("Could not generate any tasks for project '%s'.", projectID)
	}

	p.setStatus(projectID, core.ProjectTasksGenerated)
	p.logger.Info("tasks generated", "project_id", projectID, "count", total)
	return fmt.Sprintf("Generated %d tasks for project '%s'.", total, projectID)
}

// Project returns a copy of the project with the given id.
func (p *Planner) Project(projectID string) (*core.Project, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	project, ok := p.projects[projectID]
	if !ok {
		return nil, false
	}
	return project.Clone(), true
}

// Projects returns copies of all projects, ordered by id.
func (p *Planner) Projects() []*core.Project {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*core.Project, 0, len(p.projects))
	for _, project := range p.projects {
		out = append(out, project.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTasks renders the node's tasks as a numbered listing.
func (p *Planner) ListTasks() string {
	if p.ledger == nil {
		return "No tasks assigned to you."
	}
	tasks := p.ledger.TasksFor(p.nodeID)
	if len(tasks) == 0 {
		return "No tasks assigned to you."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks for %s:", p.nodeID)
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s (Due: %s, Priority: %s)", i+1, t.Title, t.DueAt.Format("2006-01-02"), t.Priority)
	}
	return b.String()
}

// suggestCandidates asks the reasoner which roster roles fit the objective.
// Output recovery is layered: strict JSON, then role/agent index heuristics,
// then plain id mentions, then the first roster entries.
func (p *Planner) suggestCandidates(ctx context.Context, objective string) []string {
	ids := p.roster.IDs()
	fallback := ids
	if len(fallback) > maxCandidates {
		fallback = fallback[:maxCandidates]
	}
	if p.rsn == nil {
		return append([]string(nil), fallback...)
	}

	prompt := fmt.Sprintf(
		"Given the objective below, pick up to %d roles from this roster that are best suited to deliver it.\n\n"+
			"Roster:\n%s\n\nObjective: %s\n\n"+
			"Respond with JSON only: {\"selected_agents\": [\"<role id>\", ...]}",
		maxCandidates, p.roster.Describe(), objective)

	start := time.Now()
	raw, err := p.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You select project participants from a fixed roster. Respond with JSON only."),
		reasoner.User(prompt),
	})
	p.logReasoner("candidate_suggestion", time.Since(start), err)
	if err != nil {
		return append([]string(nil), fallback...)
	}

	var parsed struct {
		SelectedAgents []string `json:"selected_agents"`
	}
	var names []string
	if err := reasoner.Unmarshal(raw, &parsed); err == nil && len(parsed.SelectedAgents) > 0 {
		names = parsed.SelectedAgents
	} else if idx := reasoner.HeuristicIndices(raw, p.roster.Len()); len(idx) > 0 {
		for _, i := range idx {
			if role, ok := p.roster.ByIndex(i); ok {
				names = append(names, role.ID)
			}
		}
	} else {
		names = reasoner.MentionedIDs(raw, ids)
	}

	resolved := p.roster.Normalize(names)
	if len(resolved) == 0 {
		p.logger.Warn("candidate suggestion unusable, using roster defaults", "raw", raw)
		return append([]string(nil), fallback...)
	}
	if len(resolved) > maxCandidates {
		resolved = resolved[:maxCandidates]
	}
	return resolved
}

// generatePlan asks for 3 to 5 plan steps and validates the result. A failed
// parse or an empty step list each map to their own terminal status. Steps
// whose responsible set names anyone outside the participant set fall back to
// the full participant list.
func (p *Planner) generatePlan(ctx context.Context, project *core.Project) (steps []core.PlanStep, failStatus core.ProjectStatus, failMsg string) {
	if p.rsn == nil {
		return nil, core.ProjectPlanningFailedParseError,
			fmt.Sprintf("Planning for project '%s' failed: no reasoner configured.", project.ID)
	}

	prompt := fmt.Sprintf(
		"Create a project plan with 3 to 5 steps.\n\n"+
			"Objective: %s\nParticipants: %s\n\n"+
			"Respond with JSON only:\n"+
			"{\"plan_steps\": [{\"name\": \"...\", \"description\": \"...\", \"responsible_participants\": [\"<participant>\"]}]}",
		project.Objective, strings.Join(project.Participants, ", "))

	start := time.Now()
	raw, err := p.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You are a project planner. Respond with JSON only."),
		reasoner.User(prompt),
	})
	p.logReasoner("plan_generation", time.Since(start), err)
	if err != nil {
		return nil, core.ProjectPlanningFailedParseError,
			fmt.Sprintf("Planning for project '%s' failed: %v", project.ID, err)
	}

	var parsed struct {
		PlanSteps []struct {
			Name                    string   `json:"name"`
			Description             string   `json:"description"`
			ResponsibleParticipants []string `json:"responsible_participants"`
		} `json:"plan_steps"`
	}
	if err := reasoner.Unmarshal(raw, &parsed); err != nil {
		p.logger.Warn("plan response unparseable", "project_id", project.ID, "raw", raw)
		return nil, core.ProjectPlanningFailedParseError,
			fmt.Sprintf("Planning for project '%s' failed: the plan could not be parsed.", project.ID)
	}
	if len(parsed.PlanSteps) == 0 {
		return nil, core.ProjectPlanningFailedNoSteps,
			fmt.Sprintf("Planning for project '%s' failed: the plan had no steps.", project.ID)
	}

	members := map[string]bool{}
	for _, id := range project.Participants {
		members[id] = true
	}
	for _, s := range parsed.PlanSteps {
		responsible := append([]string(nil), s.ResponsibleParticipants...)
		for _, r := range responsible {
			if !members[r] {
				responsible = append([]string(nil), project.Participants...)
				break
			}
		}
		if len(responsible) == 0 {
			responsible = append([]string(nil), project.Participants...)
		}
		steps = append(steps, core.PlanStep{
			Name:        s.Name,
			Description: s.Description,
			Responsible: responsible,
		})
	}
	return steps, "", ""
}

// taskArgs is the payload of one create_task call. The function schema is
// derived from it so contract and decoding cannot drift apart.
type taskArgs struct {
	Title         string `json:"title" description:"Short task title."`
	Description   string `json:"description" description:"What needs to be done."`
	AssignedTo    string `json:"assigned_to" description:"Responsible participant, or a comma-joined list."`
	DueDateOffset int    `json:"due_date_offset" description:"Days from today until the task is due."`
	Priority      string `json:"priority" description:"Task urgency." enum:"high,medium,low"`
}

// createTaskDef is the function contract every step's task generation uses.
func createTaskDef() reasoner.FunctionDef {
	return reasoner.FunctionDef{
		Name:        "create_task",
		Description: "Create one concrete task for the current project step.",
		Parameters:  util.CreateSchema(taskArgs{}),
	}
}

// tasksForStep asks for 1 to 5 create_task calls for one step and validates
// each payload before turning it into a core.Task.
func (p *Planner) tasksForStep(ctx context.Context, project *core.Project, step core.PlanStep) ([]core.Task, error) {
	if p.rsn == nil {
		return nil, fmt.Errorf("no reasoner configured")
	}

	prompt := fmt.Sprintf(
		"Project objective: %s\nStep: %s\nStep description: %s\nResponsible participants: %s\n\n"+
			"Call create_task between 1 and 5 times to break this step into concrete tasks. "+
			"Assign each task to one of the responsible participants.",
		project.Objective, step.Name, step.Description, strings.Join(step.Responsible, ", "))

	start := time.Now()
	calls, err := p.rsn.CallFunction(ctx, []reasoner.Message{
		reasoner.System("You break project steps into tasks by calling create_task."),
		reasoner.User(prompt),
	}, createTaskDef())
	p.logReasoner("task_generation", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("no create_task calls emitted")
	}
	if len(calls) > 5 {
		calls = calls[:5]
	}

	now := p.now()
	schema := util.CreateSchema(taskArgs{})
	var tasks []core.Task
	for _, call := range calls {
		if call.Name != "" && call.Name != "create_task" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(call.Arguments, &payload); err != nil {
			p.logger.Warn("dropping malformed create_task call", "project_id", project.ID, "error", err)
			continue
		}
		if err := util.ValidateParameters(payload, schema); err != nil {
			p.logger.Warn("dropping invalid create_task call", "project_id", project.ID, "error", err)
			continue
		}
		var args taskArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			p.logger.Warn("dropping malformed create_task call", "project_id", project.ID, "error", err)
			continue
		}
		if args.Title == "" || args.AssignedTo == "" {
			continue
		}
		offset := args.DueDateOffset
		if offset < 0 {
			offset = 0
		}
		tasks = append(tasks, core.Task{
			ID:          core.NewID(),
			Title:       args.Title,
			Description: args.Description,
			DueAt:       now.AddDate(0, 0, offset),
			AssignedTo:  args.AssignedTo,
			Priority:    core.NormalizePriority(args.Priority),
			ProjectID:   project.ID,
			UserID:      p.userID,
			CreatedAt:   now,
		})
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("all create_task calls unusable")
	}
	return tasks, nil
}

func (p *Planner) describeCandidates(ids []string) string {
	type candidate struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	out := make([]candidate, 0, len(ids))
	for _, id := range ids {
		role, ok := p.roster.Resolve(id)
		if !ok {
			continue
		}
		out = append(out, candidate{ID: role.ID, Title: role.Title, Description: role.Description})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return strings.Join(ids, ", ")
	}
	return string(data)
}

func (p *Planner) withProject(projectID string, fn func(*core.Project)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if project, ok := p.projects[projectID]; ok {
		fn(project)
	}
}

func (p *Planner) setStatus(projectID string, status core.ProjectStatus) {
	p.withProject(projectID, func(pr *core.Project) {
		pr.Status = status
	})
	p.sink.Emit(core.TopicProjectsChanged)
}

func (p *Planner) logReasoner(purpose string, dur time.Duration, err error) {
	if ml, ok := p.logger.(*logging.MeshLogger); ok {
		ml.LogReasonerCall(purpose, dur, err == nil, err)
	}
}
