// Package tool exposes the assistant's capabilities (search, file
// navigation, editing, command execution) as named, schema-described
// functions callable by the agent, the CLI, and the REST API.
package tool

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
)

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the structured outcome of one tool invocation. Expected
// failures (bad arguments, missing files, denied commands) ride in
// Error with StatusError so callers and the model can react to them.
type Result struct {
	Status string            `json:"status"`
	Data   any               `json:"data,omitempty"`
	Error  *domain.ToolError `json:"error,omitempty"`
}

// OK wraps data in a successful result.
func OK(data any) Result {
	return Result{Status: StatusOK, Data: data}
}

// Fail wraps a tool error in a failed result.
func Fail(err *domain.ToolError) Result {
	return Result{Status: StatusError, Error: err}
}

// Handler executes one tool call. Only infrastructure failures such as
// context cancellation are returned as Go errors; everything the caller
// could act on is encoded in the Result.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Tool couples a handler with the name, description and argument
// schema advertised to the language model.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Definition
	Handler     Handler
}

// decodeArgs unmarshals raw call arguments into v. Unknown or
// malformed input comes back as an invalid_args tool error rather than
// a crash, since the arguments originate from the model.
func decodeArgs(tool string, raw json.RawMessage, v any) *domain.ToolError {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewToolError(tool, domain.ToolErrInvalidArgs, err.Error())
	}
	return nil
}
