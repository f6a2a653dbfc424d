package reasoner

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a scripted in-memory Reasoner for tests and examples. Replies and
// function calls are consumed FIFO; when the script runs out, Complete echoes
// the last user message and CallFunction returns an error.
type Mock struct {
	mu        sync.Mutex
	replies   []string
	calls     [][]FunctionCall
	completes [][]Message
	fnPrompts [][]Message
	err       error
}

var _ Reasoner = (*Mock)(nil)

// NewMock constructs an empty Mock.
func NewMock() *Mock {
	return &Mock{}
}

// QueueReply appends a canned Complete reply.
func (m *Mock) QueueReply(reply string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply)
	return m
}

// QueueCalls appends a canned CallFunction result.
func (m *Mock) QueueCalls(calls ...FunctionCall) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, calls)
	return m
}

// Fail makes every subsequent call return err.
func (m *Mock) Fail(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Complete implements Reasoner.
func (m *Mock) Complete(_ context.Context, msgs []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes = append(m.completes, msgs)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) > 0 {
		reply := m.replies[0]
		m.replies = m.replies[1:]
		return reply, nil
	}
	var last string
	for _, msg := range msgs {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	return fmt.Sprintf("Mock response to: %s", last), nil
}

// CallFunction implements Reasoner.
func (m *Mock) CallFunction(_ context.Context, msgs []Message, _ FunctionDef) ([]FunctionCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fnPrompts = append(m.fnPrompts, msgs)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.calls) == 0 {
		return nil, fmt.Errorf("mock: no scripted function calls left")
	}
	calls := m.calls[0]
	m.calls = m.calls[1:]
	return calls, nil
}

// CompleteCalls returns the prompts seen by Complete.
func (m *Mock) CompleteCalls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.completes...)
}

// FunctionPrompts returns the prompts seen by CallFunction.
func (m *Mock) FunctionPrompts() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.fnPrompts...)
}
