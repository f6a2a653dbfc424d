// Package orgmesh provides a high-level façade over the message bus, the
// shared task ledger and the per-role agents. Most applications interact with
// this package by:
//  1. Creating a Mesh via New() (optionally overriding roster, reasoner,
//     calendar provider and logger)
//  2. Adding agents for roster roles (AddNode or AddRosterNodes)
//  3. Talking to agents through Ask, or injecting traffic through Send
//
// All defaults are safe for local development: without a reasoner the agents
// fall back to their deterministic command handling, and without a calendar
// provider all scheduling stays on the in-memory calendars.
package orgmesh

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/orgmesh/bus"
	"github.com/hupe1980/orgmesh/calendar"
	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/ledger"
	"github.com/hupe1980/orgmesh/logging"
	"github.com/hupe1980/orgmesh/node"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/roles"
	"github.com/hupe1980/orgmesh/scheduler"
)

// Options configures the Mesh instance.
type Options struct {
	// Logger receives structured logs from every component. Defaults to
	// NoOpLogger.
	Logger logging.Logger
	// Sink receives change notifications (projects, tasks, meetings).
	// Defaults to NoOpSink.
	Sink core.EventSink
	// Roster defines the organizational roles. Defaults to roles.Default().
	Roster *roles.Roster
	// Reasoner powers planning, scheduling and chat for every agent. May be
	// nil.
	Reasoner reasoner.Reasoner
	// Provider is the optional external calendar backend shared by all
	// agents.
	Provider calendar.Provider
	// Resolver overrides the conflict resolver used by all agents.
	Resolver scheduler.ConflictResolver
	// Now supplies the clock, overridable in tests.
	Now func() time.Time
}

// Mesh is the high-level façade aggregating the bus, the ledger and the
// agents.
type Mesh struct {
	opts   Options
	bus    *bus.Bus
	ledger *ledger.Ledger
	roster *roles.Roster

	mu    sync.RWMutex
	nodes map[string]*node.Agent
}

// New creates a Mesh with optional overrides.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Sink:   core.NoOpSink{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	roster := opts.Roster
	if roster == nil {
		roster = roles.Default()
	}

	b := bus.New(func(o *bus.Options) {
		o.Logger = opts.Logger
	})
	ld := ledger.New(b, func(o *ledger.Options) {
		o.Logger = opts.Logger
		o.Sink = opts.Sink
	})

	return &Mesh{
		opts:   opts,
		bus:    b,
		ledger: ld,
		roster: roster,
		nodes:  map[string]*node.Agent{},
	}
}

// AddNode assembles an agent for the role and registers it on the bus. A
// previously added agent with the same id is replaced.
func (m *Mesh) AddNode(role roles.Role, optFns ...func(o *node.Options)) *node.Agent {
	a := node.New(role, m.ledger, m.bus, func(o *node.Options) {
		o.Logger = m.opts.Logger
		o.Sink = m.opts.Sink
		o.Reasoner = m.opts.Reasoner
		o.Provider = m.opts.Provider
		o.Resolver = m.opts.Resolver
		o.Roster = m.roster
		o.Now = m.opts.Now
		for _, fn := range optFns {
			fn(o)
		}
	})

	m.bus.Register(role.ID, a)
	m.mu.Lock()
	m.nodes[role.ID] = a
	m.mu.Unlock()
	return a
}

// AddRosterNodes adds one agent per roster role.
func (m *Mesh) AddRosterNodes(optFns ...func(o *node.Options)) []*node.Agent {
	out := make([]*node.Agent, 0, m.roster.Len())
	for _, role := range m.roster.Roles() {
		out = append(out, m.AddNode(role, optFns...))
	}
	return out
}

// RemoveNode unregisters and drops the agent with the given id.
func (m *Mesh) RemoveNode(id string) {
	m.bus.Unregister(id)
	m.mu.Lock()
	delete(m.nodes, id)
	m.mu.Unlock()
}

// Node returns the agent with the given id.
func (m *Mesh) Node(id string) (*node.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.nodes[id]
	return a, ok
}

// Send injects a message into the mesh, discarding the reply.
func (m *Mesh) Send(ctx context.Context, sender, recipient, content string) error {
	return m.bus.Send(ctx, sender, recipient, content)
}

// Ask injects a message and returns the recipient's reply along with whether
// the message was delivered.
func (m *Mesh) Ask(ctx context.Context, sender, recipient, content string) (string, bool) {
	return m.bus.Ask(ctx, sender, recipient, content)
}

// Bus exposes the underlying message bus.
func (m *Mesh) Bus() *bus.Bus { return m.bus }

// Ledger exposes the shared task ledger.
func (m *Mesh) Ledger() *ledger.Ledger { return m.ledger }

// Roster exposes the role roster.
func (m *Mesh) Roster() *roles.Roster { return m.roster }
