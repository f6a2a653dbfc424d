package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/orgmesh/core"
)

type recordedCall struct {
	content string
	sender  string
}

type stubNode struct {
	id       string
	calls    []recordedCall
	reply    string
	sender   core.Sender
	onRecv   func(ctx context.Context, content, sender string) string
	detached bool
}

var (
	_ core.Node       = (*stubNode)(nil)
	_ core.Attachable = (*stubNode)(nil)
)

func (n *stubNode) ID() string   { return n.id }
func (n *stubNode) Name() string { return n.id }

func (n *stubNode) Receive(ctx context.Context, content, sender string) string {
	n.calls = append(n.calls, recordedCall{content: content, sender: sender})
	if n.onRecv != nil {
		return n.onRecv(ctx, content, sender)
	}
	return n.reply
}

func (n *stubNode) Attach(s core.Sender) { n.sender = s }
func (n *stubNode) Detach()              { n.sender = nil; n.detached = true }

func TestSendInvokesReceiveOnce(t *testing.T) {
	b := New()
	a := &stubNode{id: "a"}
	bb := &stubNode{id: "b", reply: "pong"}
	b.Register("a", a)
	b.Register("b", bb)

	reply, delivered := b.Ask(context.Background(), "a", "b", "ping")

	assert.True(t, delivered)
	assert.Equal(t, "pong", reply)
	require.Len(t, bb.calls, 1)
	assert.Equal(t, "ping", bb.calls[0].content)
	assert.Equal(t, "a", bb.calls[0].sender)

	log := b.DeliveryLog()
	require.Len(t, log, 1)
	assert.True(t, log[0].Delivered)
	assert.Equal(t, "a", log[0].Message.Sender)
	assert.Equal(t, "b", log[0].Message.Recipient)
	assert.Equal(t, "ping", log[0].Message.Content)
}

func TestSendUnknownRecipientLogsAndSwallows(t *testing.T) {
	b := New()
	b.Register("a", &stubNode{id: "a"})

	err := b.Send(context.Background(), "a", "ghost", "hello")

	assert.NoError(t, err)
	log := b.DeliveryLog()
	require.Len(t, log, 1)
	assert.False(t, log[0].Delivered)
	assert.Equal(t, "ghost", log[0].Message.Recipient)
}

func TestRegisterAttachesBackReference(t *testing.T) {
	b := New()
	n := &stubNode{id: "a"}
	b.Register("a", n)
	assert.NotNil(t, n.sender)

	b.Unregister("a")
	assert.Nil(t, n.sender)
	assert.True(t, n.detached)

	_, ok := b.Lookup("a")
	assert.False(t, ok)
}

func TestReentrantSendFromReceive(t *testing.T) {
	b := New()
	a := &stubNode{id: "a", reply: "ack"}
	echo := &stubNode{id: "echo"}
	echo.onRecv = func(ctx context.Context, content, sender string) string {
		// Notify the sender while still inside the handler.
		reply, _ := b.Ask(ctx, "echo", sender, "notified")
		return "echoed " + reply
	}
	b.Register("a", a)
	b.Register("echo", echo)

	reply, delivered := b.Ask(context.Background(), "a", "echo", "hi")

	assert.True(t, delivered)
	assert.Equal(t, "echoed ack", reply)
	require.Len(t, a.calls, 1)
	assert.Equal(t, "notified", a.calls[0].content)
	assert.Len(t, b.DeliveryLog(), 2)
}

func TestNodeIDsSorted(t *testing.T) {
	b := New()
	b.Register("zeta", &stubNode{id: "zeta"})
	b.Register("alpha", &stubNode{id: "alpha"})
	assert.Equal(t, []string{"alpha", "zeta"}, b.NodeIDs())
}
