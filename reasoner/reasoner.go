package reasoner

import (
	"context"
	"encoding/json"
)

// Message is one prompt entry. Role is system, user or assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system prompt message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User builds a user prompt message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Assistant builds an assistant prompt message.
func Assistant(content string) Message { return Message{Role: "assistant", Content: content} }

// FunctionDef declaratively exposes a callable contract to the reasoner.
// Parameters is a JSON Schema object (minimal subset expected).
type FunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// FunctionCall is one structured call emitted by the reasoner. Arguments is
// the raw JSON payload; callers must validate it before acting.
type FunctionCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Reasoner is the completion capability consumed by the planner, scheduler
// and router. Implementations must respect the context deadline.
type Reasoner interface {
	// Complete returns a free-form text reply to the prompt.
	Complete(ctx context.Context, msgs []Message) (string, error)

	// CallFunction asks for structured output through the given function
	// contract and returns the emitted calls in order.
	CallFunction(ctx context.Context, msgs []Message, def FunctionDef) ([]FunctionCall, error)
}

// Info describes a reasoner implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}
