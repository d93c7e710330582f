// Package agent runs the conversational loop: it sends the history to
// the chat model with the tool schemas attached, executes the tool
// calls the model requests, and feeds the results back until the model
// answers in plain text.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"codeagent/internal/prompt"
	"codeagent/internal/tool"
)

// DefaultMaxSteps bounds the tool rounds spent on one user turn.
const DefaultMaxSteps = 8

// chatCompleter is the part of the chat adapter the loop needs.
type chatCompleter interface {
	CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
	ModelName() string
}

// Agent holds one conversation. History lives in memory for the
// session only. Not safe for concurrent Send calls.
type Agent struct {
	chat     chatCompleter
	registry *tool.Registry
	maxSteps int
	logger   *slog.Logger

	session string
	history []openai.ChatCompletionMessage
}

// Options tune a new agent.
type Options struct {
	MaxSteps int
	Logger   *slog.Logger
}

// New creates an agent seeded with the system prompt.
func New(chat chatCompleter, registry *tool.Registry, opts Options) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Agent{
		chat:     chat,
		registry: registry,
		maxSteps: opts.MaxSteps,
		logger:   opts.Logger,
		session:  uuid.NewString(),
		history: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.AgentSystem()},
		},
	}
}

// Send appends a user turn and runs tool rounds until the model
// answers in plain text. When the step budget is spent the model is
// asked once more, without tools, for a final answer.
func (a *Agent) Send(ctx context.Context, message string) (string, error) {
	a.history = append(a.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
	tools := a.registry.OpenAITools()

	for step := 0; step < a.maxSteps; step++ {
		reply, err := a.chat.CompleteWithTools(ctx, a.history, tools)
		if err != nil {
			return "", err
		}
		a.history = append(a.history, reply)

		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		for _, call := range reply.ToolCalls {
			msg, err := a.runToolCall(ctx, call)
			if err != nil {
				return "", err
			}
			a.history = append(a.history, msg)
		}
	}

	a.logger.Warn("tool budget spent, forcing a final answer",
		"session", a.session, "steps", a.maxSteps)
	reply, err := a.chat.CompleteWithTools(ctx, a.history, nil)
	if err != nil {
		return "", err
	}
	a.history = append(a.history, reply)
	return reply.Content, nil
}

// Reset drops the conversation, keeping only the system prompt.
func (a *Agent) Reset() {
	a.history = a.history[:1]
	a.session = uuid.NewString()
}

// History returns the conversation so far, system prompt included.
func (a *Agent) History() []openai.ChatCompletionMessage {
	return a.history
}

func (a *Agent) runToolCall(ctx context.Context, call openai.ToolCall) (openai.ChatCompletionMessage, error) {
	name := call.Function.Name
	a.logger.Info("tool call",
		"session", a.session, "tool", name, "call_id", call.ID)

	res, err := a.registry.Execute(ctx, name, json.RawMessage(call.Function.Arguments))
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("tool %s: %w", name, err)
	}
	if res.Error != nil {
		a.logger.Warn("tool failed",
			"session", a.session, "tool", name, "code", res.Error.Code)
	}

	payload, err := json.Marshal(res)
	if err != nil {
		payload = []byte(`{"status":"error"}`)
	}
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    string(payload),
		ToolCallID: call.ID,
	}, nil
}
