// Package anthropic implements reasoner.Reasoner using the Anthropic
// Messages API, including tool use for structured output.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/orgmesh/reasoner"
)

// Options configure the Anthropic reasoner adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// Timeout bounds each call when the caller's context has no deadline.
	Timeout time.Duration
}

// Reasoner wraps the Anthropic Messages API behind reasoner.Reasoner.
type Reasoner struct {
	client *anthropic.Client
	opts   Options
}

var _ reasoner.Reasoner = (*Reasoner)(nil)

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
		Timeout:     30 * time.Second,
	}
}

// New creates an Anthropic reasoner using the official client.
func New(optFns ...func(o *Options)) *Reasoner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Reasoner{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic reasoner from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Reasoner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reasoner{client: client, opts: opts}
}

// Complete implements reasoner.Reasoner.
func (r *Reasoner) Complete(ctx context.Context, msgs []reasoner.Message) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.client.Messages.New(ctx, r.buildParams(msgs, nil))
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text, nil
}

// CallFunction implements reasoner.Reasoner.
func (r *Reasoner) CallFunction(ctx context.Context, msgs []reasoner.Message, def reasoner.FunctionDef) ([]reasoner.FunctionCall, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.client.Messages.New(ctx, r.buildParams(msgs, &def))
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var calls []reasoner.FunctionCall
	var text string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := json.RawMessage("{}")
			if toolBlock.Input != nil {
				if b, err := json.Marshal(toolBlock.Input); err == nil {
					args = b
				}
			}
			calls = append(calls, reasoner.FunctionCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}
	if len(calls) == 0 {
		return nil, &reasoner.ParseError{Raw: text, Err: fmt.Errorf("no tool use emitted")}
	}
	return calls, nil
}

// Info returns metadata describing this implementation.
func (r *Reasoner) Info() reasoner.Info {
	return reasoner.Info{Name: string(r.opts.Model), Provider: "anthropic"}
}

func (r *Reasoner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || r.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}

func (r *Reasoner) buildParams(msgs []reasoner.Message, def *reasoner.FunctionDef) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	var systemBlocks []anthropic.TextBlockParam
	for _, m := range msgs {
		switch m.Role {
		case "system":
			if m.Content != "" {
				systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Content})
			}
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		Messages:    messages,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: anthropic.Float(r.opts.Temperature),
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if def != nil {
		params.Tools = []anthropic.ToolUnionParam{buildTool(*def)}
	}
	return params
}

// buildTool converts a FunctionDef into the Anthropic tool format.
func buildTool(def reasoner.FunctionDef) anthropic.ToolUnionParam {
	inputSchema := anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
	}
	if def.Parameters != nil {
		if properties, exists := def.Parameters["properties"]; exists {
			inputSchema.Properties = properties
		}
		if required, exists := def.Parameters["required"]; exists {
			if reqSlice, ok := required.([]string); ok {
				inputSchema.Required = reqSlice
			} else if reqInterface, ok := required.([]interface{}); ok {
				var reqStrings []string
				for _, rq := range reqInterface {
					if s, ok := rq.(string); ok {
						reqStrings = append(reqStrings, s)
					}
				}
				inputSchema.Required = reqStrings
			}
		}
	}
	return anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
}
