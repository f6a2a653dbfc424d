package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/ledger"
	"github.com/hupe1980/orgmesh/roles"
)

func testRole() roles.Role {
	return roles.Role{ID: "ceo", Title: "CEO", Description: "Runs the org.", Knowledge: "Knows everything."}
}

func TestAgentIdentity(t *testing.T) {
	a := New(testRole(), ledger.New(nil), nil)

	assert.Equal(t, "ceo", a.ID())
	assert.Equal(t, "CEO", a.Name())
	require.NotNil(t, a.Calendar())
	assert.Equal(t, 0, a.Calendar().Len())
}

func TestAgentPassesNotificationsThrough(t *testing.T) {
	a := New(testRole(), ledger.New(nil), nil)

	got := a.Receive(context.Background(), core.InfoTag+"New task assigned to you: Ship it", "system")

	assert.Equal(t, "New task assigned to you: Ship it", got)
}

func TestSenderProxyRequiresAttachment(t *testing.T) {
	p := &senderProxy{}
	err := p.Send(context.Background(), "a", "b", "hi")
	require.Error(t, err)

	sent := 0
	p.set(senderFunc(func(context.Context, string, string, string) error {
		sent++
		return nil
	}))
	require.NoError(t, p.Send(context.Background(), "a", "b", "hi"))
	assert.Equal(t, 1, sent)

	p.set(nil)
	assert.Error(t, p.Send(context.Background(), "a", "b", "hi"))
}

type senderFunc func(ctx context.Context, sender, recipient, content string) error

func (f senderFunc) Send(ctx context.Context, sender, recipient, content string) error {
	return f(ctx, sender, recipient, content)
}
