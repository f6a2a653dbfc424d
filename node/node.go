package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/orgmesh/calendar"
	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/ledger"
	"github.com/hupe1980/orgmesh/logging"
	"github.com/hupe1980/orgmesh/planner"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/roles"
	"github.com/hupe1980/orgmesh/router"
	"github.com/hupe1980/orgmesh/scheduler"
)

// Options configures an Agent.
type Options struct {
	// Logger receives structured logs. Defaults to NoOpLogger.
	Logger logging.Logger
	// Sink receives change notifications. Defaults to NoOpSink.
	Sink core.EventSink
	// Reasoner powers intent detection, planning and chat. May be nil.
	Reasoner reasoner.Reasoner
	// Provider is the optional external calendar backend.
	Provider calendar.Provider
	// Resolver overrides the scheduler's conflict resolver.
	Resolver scheduler.ConflictResolver
	// Roster resolves participant names. Defaults to roles.Default().
	Roster *roles.Roster
	// SystemPrompt overrides the chat framing derived from the role.
	SystemPrompt string
	// Now supplies the clock, overridable in tests.
	Now func() time.Time
}

// Agent is one organizational node on the bus. All inbound traffic flows
// through its router; outbound traffic goes through the attached sender.
type Agent struct {
	role   roles.Role
	state  *dialog.State
	cal    *core.Calendar
	proxy  *senderProxy
	pl     *planner.Planner
	sched  *scheduler.Scheduler
	rt     *router.Router
	logger logging.Logger
}

var (
	_ core.Node           = (*Agent)(nil)
	_ core.Attachable     = (*Agent)(nil)
	_ core.CalendarHolder = (*Agent)(nil)
)

// New assembles an agent for the given role. ld is the shared task ledger;
// dir resolves other nodes, typically the bus itself.
func New(role roles.Role, ld *ledger.Ledger, dir scheduler.Directory, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Now: time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	roster := opts.Roster
	if roster == nil {
		roster = roles.Default()
	}
	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = rolePrompt(role)
	}

	state := dialog.NewState()
	cal := core.NewCalendar()
	proxy := &senderProxy{}
	logger := core.EnsureLogger(opts.Logger)

	sched := scheduler.New(role.ID, state, cal, proxy, dir, opts.Reasoner, func(o *scheduler.Options) {
		o.Logger = opts.Logger
		o.Sink = opts.Sink
		o.Provider = opts.Provider
		o.Resolver = opts.Resolver
		o.Roster = roster
		if opts.Now != nil {
			o.Now = opts.Now
		}
	})
	pl := planner.New(role.ID, opts.Reasoner, ld, state, func(o *planner.Options) {
		o.Logger = opts.Logger
		o.Sink = opts.Sink
		o.Roster = roster
		o.Reminder = sched.CreateTaskReminder
		if opts.Now != nil {
			o.Now = opts.Now
		}
	})
	rt := router.New(role.ID, state, pl, sched, ld, opts.Reasoner, func(o *router.Options) {
		o.Logger = opts.Logger
		o.SystemPrompt = prompt
	})

	return &Agent{
		role:   role,
		state:  state,
		cal:    cal,
		proxy:  proxy,
		pl:     pl,
		sched:  sched,
		rt:     rt,
		logger: logger,
	}
}

// rolePrompt derives the chat framing from the role definition.
func rolePrompt(role roles.Role) string {
	return fmt.Sprintf(
		"You are a direct and concise AI agent for an organization, acting as %s (%s). %s %s Provide short, to-the-point answers.",
		role.ID, role.Title, role.Description, role.Knowledge)
}

// ID implements core.Node.
func (a *Agent) ID() string { return a.role.ID }

// Name implements core.Node.
func (a *Agent) Name() string { return a.role.Title }

// Receive implements core.Node by running the message through the router.
func (a *Agent) Receive(ctx context.Context, content, sender string) string {
	a.logger.Debug("message received", "node_id", a.role.ID, "sender", sender)
	return a.rt.Route(ctx, content, sender)
}

// Attach implements core.Attachable.
func (a *Agent) Attach(s core.Sender) { a.proxy.set(s) }

// Detach implements core.Attachable.
func (a *Agent) Detach() { a.proxy.set(nil) }

// Calendar implements core.CalendarHolder.
func (a *Agent) Calendar() *core.Calendar { return a.cal }

// State exposes the dialogue state, mainly for tests and inspection.
func (a *Agent) State() *dialog.State { return a.state }

// Planner exposes the project planner.
func (a *Agent) Planner() *planner.Planner { return a.pl }

// Scheduler exposes the meeting scheduler.
func (a *Agent) Scheduler() *scheduler.Scheduler { return a.sched }

// Role returns the role the agent represents.
func (a *Agent) Role() roles.Role { return a.role }

// senderProxy defers the bus reference until registration so the planner and
// scheduler can hold a stable Sender from construction on.
type senderProxy struct {
	mu sync.RWMutex
	s  core.Sender
}

func (p *senderProxy) set(s core.Sender) {
	p.mu.Lock()
	p.s = s
	p.mu.Unlock()
}

// Send implements core.Sender.
func (p *senderProxy) Send(ctx context.Context, sender, recipient, content string) error {
	p.mu.RLock()
	s := p.s
	p.mu.RUnlock()
	if s == nil {
		return fmt.Errorf("node is not attached to a bus")
	}
	return s.Send(ctx, sender, recipient, content)
}
