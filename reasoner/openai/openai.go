// Package openai implements reasoner.Reasoner using the OpenAI Chat
// Completions API, including function calling for structured output.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/hupe1980/orgmesh/reasoner"
)

// Options configure the OpenAI reasoner adapter. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options
// without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// Timeout bounds each call when the caller's context has no deadline.
	Timeout time.Duration
}

// Reasoner wraps the OpenAI Chat Completions API behind reasoner.Reasoner.
type Reasoner struct {
	client *openai.Client
	opts   Options
}

var _ reasoner.Reasoner = (*Reasoner)(nil)

// New creates an OpenAI reasoner using the official client. Credentials come
// from the environment (OPENAI_API_KEY).
func New(optFns ...func(o *Options)) *Reasoner {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI reasoner from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Timeout:             30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reasoner{client: client, opts: opts}
}

// Complete implements reasoner.Reasoner.
func (r *Reasoner) Complete(ctx context.Context, msgs []reasoner.Message) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.client.Chat.Completions.New(ctx, r.buildParams(msgs, nil))
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// CallFunction implements reasoner.Reasoner. The function contract is the
// only tool exposed; emitted calls are returned in order.
func (r *Reasoner) CallFunction(ctx context.Context, msgs []reasoner.Message, def reasoner.FunctionDef) ([]reasoner.FunctionCall, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.client.Chat.Completions.New(ctx, r.buildParams(msgs, &def))
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	toolCalls := resp.Choices[0].Message.ToolCalls
	if len(toolCalls) == 0 {
		return nil, &reasoner.ParseError{
			Raw: resp.Choices[0].Message.Content,
			Err: fmt.Errorf("no function call emitted"),
		}
	}
	calls := make([]reasoner.FunctionCall, 0, len(toolCalls))
	for _, tc := range toolCalls {
		calls = append(calls, reasoner.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}
	return calls, nil
}

// Info returns metadata describing this implementation.
func (r *Reasoner) Info() reasoner.Info {
	return reasoner.Info{Name: r.opts.Model, Provider: "openai"}
}

func (r *Reasoner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || r.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}

func (r *Reasoner) buildParams(msgs []reasoner.Message, def *reasoner.FunctionDef) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	}
	if def != nil {
		params.Tools = []openai.ChatCompletionToolParam{{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}}
	}
	return params
}
