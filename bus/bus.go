package bus

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/logging"
)

// LogEntry records one delivery attempt, successful or not.
type LogEntry struct {
	Message   core.Message
	Delivered bool
}

// Options configures a Bus.
type Options struct {
	// Logger receives structured delivery logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Bus is the node registry plus synchronous dispatcher. The delivery log is
// append-only and records every attempt, including those to unknown
// recipients.
type Bus struct {
	mu     sync.RWMutex
	nodes  map[string]core.Node
	logMu  sync.Mutex
	log    []LogEntry
	logger logging.Logger

	opts Options
}

var _ core.Sender = (*Bus)(nil)

// New creates an empty Bus.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		nodes:  map[string]core.Node{},
		log:    []LogEntry{},
		logger: core.EnsureLogger(opts.Logger),
		opts:   opts,
	}
}

// Register stores the node handle under id. When the node is Attachable the
// bus hands it a back-reference for outbound sends. Re-registering an id
// replaces the previous handle.
func (b *Bus) Register(id string, node core.Node) {
	b.mu.Lock()
	b.nodes[id] = node
	b.mu.Unlock()

	if a, ok := node.(core.Attachable); ok {
		a.Attach(b)
	}
	b.logger.Info("node registered", "node_id", id, "name", node.Name())
}

// Unregister removes the entry and clears the node's back-reference. Unknown
// ids are ignored.
func (b *Bus) Unregister(id string) {
	b.mu.Lock()
	node, ok := b.nodes[id]
	delete(b.nodes, id)
	b.mu.Unlock()

	if !ok {
		return
	}
	if a, attachable := node.(core.Attachable); attachable {
		a.Detach()
	}
	b.logger.Info("node unregistered", "node_id", id)
}

// Lookup returns the handle registered under id.
func (b *Bus) Lookup(id string) (core.Node, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	node, ok := b.nodes[id]
	return node, ok
}

// NodeIDs returns the sorted ids of all registered nodes.
func (b *Bus) NodeIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Send logs the attempt and, if the recipient is registered, invokes its
// Receive synchronously with (content, sender). The reply is discarded; use
// Ask to capture it. Unknown recipients are a no-op aside from the log entry.
// Send never returns a non-nil error.
func (b *Bus) Send(ctx context.Context, sender, recipient, content string) error {
	b.Ask(ctx, sender, recipient, content)
	return nil
}

// Ask behaves like Send but returns the recipient's reply and whether the
// message was delivered.
func (b *Bus) Ask(ctx context.Context, sender, recipient, content string) (string, bool) {
	msg := core.NewMessage(sender, recipient, content)

	b.mu.RLock()
	node, ok := b.nodes[recipient]
	b.mu.RUnlock()

	b.appendLog(LogEntry{Message: msg, Delivered: ok})
	if ml, isMesh := b.logger.(*logging.MeshLogger); isMesh {
		ml.LogDelivery(sender, recipient, ok)
	} else {
		b.logger.Info("message delivery", "sender", sender, "recipient", recipient, "delivered", ok)
	}

	if !ok {
		b.logger.Warn("dropping message", "recipient", recipient, "reason", core.ErrUnknownRecipient.Error())
		return "", false
	}
	return node.Receive(ctx, content, sender), true
}

// DeliveryLog returns a copy of all delivery attempts in order.
func (b *Bus) DeliveryLog() []LogEntry {
	b.logMu.Lock()
	defer b.logMu.Unlock()
	out := make([]LogEntry, len(b.log))
	copy(out, b.log)
	return out
}

func (b *Bus) appendLog(e LogEntry) {
	b.logMu.Lock()
	b.log = append(b.log, e)
	b.logMu.Unlock()
}
