package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
	"codeagent/internal/security"
)

const maxCommandOutput = 64 * 1024

// RunArgs are the arguments of the run_command tool.
type RunArgs struct {
	Command string `json:"command"`
}

// RunData is the payload of a run_command call that executed, whatever
// its exit status.
type RunData struct {
	Command   string `json:"command"`
	Output    string `json:"output"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated,omitempty"`
}

// NewRunCommand builds the run_command tool. The policy decides
// whether execution is allowed at all; a non-zero exit is a normal
// result the model should see, not a tool failure.
func NewRunCommand(ws *security.Workspace, policy security.CommandPolicy) Tool {
	return Tool{
		Name:        "run_command",
		Description: "Run a shell command in the workspace root and return its combined output and exit code. Only available when the operator has enabled command execution.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"command": {
					Type:        jsonschema.String,
					Description: "The shell command to run",
				},
			},
			Required: []string{"command"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args RunArgs
			if terr := decodeArgs("run_command", raw, &args); terr != nil {
				return Fail(terr), nil
			}

			if err := policy.Validate(args.Command); err != nil {
				code := domain.ToolErrInvalidArgs
				if errors.Is(err, security.ErrExecDisabled) || errors.Is(err, security.ErrCommandDenied) {
					code = domain.ToolErrDenied
				}
				return Fail(domain.NewToolError("run_command", code, err.Error())), nil
			}

			timeout := policy.Timeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "sh", "-c", args.Command)
			cmd.Dir = ws.Root()
			output, err := cmd.CombinedOutput()

			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return Fail(domain.NewToolError("run_command", domain.ToolErrExec,
					fmt.Sprintf("command timed out after %s", timeout))), nil
			}

			data := RunData{Command: args.Command, Output: string(output)}
			if len(data.Output) > maxCommandOutput {
				data.Output = data.Output[:maxCommandOutput]
				data.Truncated = true
			}

			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					data.ExitCode = exitErr.ExitCode()
					return OK(data), nil
				}
				return Fail(domain.NewToolError("run_command", domain.ToolErrExec, err.Error())), nil
			}
			return OK(data), nil
		},
	}
}
