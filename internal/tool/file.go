package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
	"codeagent/internal/security"
)

// maxReadFileSize bounds read_file so a model request cannot pull a
// multi-gigabyte artifact into memory.
const maxReadFileSize = 10 << 20

// ReadArgs are the arguments of the read_file tool.
type ReadArgs struct {
	Path string `json:"path"`
}

// ReadData is the payload of a successful read_file call.
type ReadData struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Lines   int    `json:"lines"`
}

// WriteArgs are the arguments of the write_file tool.
type WriteArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteData is the payload of a successful write_file call.
type WriteData struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// NewReadFile builds the read_file tool.
func NewReadFile(ws *security.Workspace) Tool {
	return Tool{
		Name:        "read_file",
		Description: "Read the full content of a file in the workspace.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"path": {
					Type:        jsonschema.String,
					Description: "The file to read, relative to the workspace root",
				},
			},
			Required: []string{"path"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args ReadArgs
			if terr := decodeArgs("read_file", raw, &args); terr != nil {
				return Fail(terr), nil
			}
			if args.Path == "" {
				return Fail(domain.NewToolError("read_file", domain.ToolErrInvalidArgs, "path is required")), nil
			}

			abs, err := ws.Resolve(args.Path)
			if err != nil {
				return Fail(pathToolError("read_file", args.Path, err)), nil
			}
			info, err := os.Stat(abs)
			if err != nil {
				return Fail(domain.NewToolError("read_file", domain.ToolErrNotFound, args.Path+" does not exist")), nil
			}
			if info.IsDir() {
				return Fail(domain.NewToolError("read_file", domain.ToolErrInvalidArgs, args.Path+" is a directory")), nil
			}
			if info.Size() > maxReadFileSize {
				return Fail(domain.NewToolError("read_file", domain.ToolErrIO,
					fmt.Sprintf("%s is %d bytes, larger than the %d byte limit", args.Path, info.Size(), maxReadFileSize))), nil
			}

			content, err := os.ReadFile(abs)
			if err != nil {
				return Fail(domain.NewToolError("read_file", domain.ToolErrIO, err.Error())), nil
			}
			text := string(content)
			return OK(ReadData{
				Path:    ws.Rel(abs),
				Content: text,
				Lines:   strings.Count(text, "\n") + 1,
			}), nil
		},
	}
}

// NewWriteFile builds the write_file tool. Missing parent directories
// are created.
func NewWriteFile(ws *security.Workspace) Tool {
	return Tool{
		Name:        "write_file",
		Description: "Create or overwrite a file in the workspace with the given content.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"path": {
					Type:        jsonschema.String,
					Description: "The file to write, relative to the workspace root",
				},
				"content": {
					Type:        jsonschema.String,
					Description: "The full new content of the file",
				},
			},
			Required: []string{"path", "content"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args WriteArgs
			if terr := decodeArgs("write_file", raw, &args); terr != nil {
				return Fail(terr), nil
			}
			if args.Path == "" {
				return Fail(domain.NewToolError("write_file", domain.ToolErrInvalidArgs, "path is required")), nil
			}

			abs, err := ws.Resolve(args.Path)
			if err != nil {
				return Fail(pathToolError("write_file", args.Path, err)), nil
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				return Fail(domain.NewToolError("write_file", domain.ToolErrIO, err.Error())), nil
			}
			if err := os.WriteFile(abs, []byte(args.Content), 0644); err != nil {
				return Fail(domain.NewToolError("write_file", domain.ToolErrIO, err.Error())), nil
			}
			return OK(WriteData{Path: ws.Rel(abs), Bytes: len(args.Content)}), nil
		},
	}
}
