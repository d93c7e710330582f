package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
	"codeagent/internal/security"
)

const (
	defaultTreeDepth = 2
	maxTreeEntries   = 500
)

// skippedDirs are never descended into or listed.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	"venv":         true,
}

// TreeArgs are the arguments of the directory_tree tool.
type TreeArgs struct {
	Path     string `json:"path"`
	MaxDepth int    `json:"max_depth"`
}

// TreeData is the payload of a successful directory_tree call.
type TreeData struct {
	Path string `json:"path"`
	Tree string `json:"tree"`
}

// NewDirectoryTree builds the directory_tree tool.
func NewDirectoryTree(ws *security.Workspace) Tool {
	return Tool{
		Name:        "directory_tree",
		Description: "List the directory structure under a path as an indented tree. Directories end with a slash.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"path": {
					Type:        jsonschema.String,
					Description: "Directory to list (default: workspace root)",
				},
				"max_depth": {
					Type:        jsonschema.Integer,
					Description: "How many levels to descend (default 2)",
				},
			},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args TreeArgs
			if terr := decodeArgs("directory_tree", raw, &args); terr != nil {
				return Fail(terr), nil
			}
			if args.MaxDepth <= 0 {
				args.MaxDepth = defaultTreeDepth
			}

			target := ws.Root()
			if args.Path != "" {
				resolved, err := ws.Resolve(args.Path)
				if err != nil {
					return Fail(pathToolError("directory_tree", args.Path, err)), nil
				}
				target = resolved
			}

			info, err := os.Stat(target)
			if err != nil {
				return Fail(domain.NewToolError("directory_tree", domain.ToolErrNotFound, args.Path+" does not exist")), nil
			}
			if !info.IsDir() {
				return Fail(domain.NewToolError("directory_tree", domain.ToolErrInvalidArgs, args.Path+" is not a directory")), nil
			}

			r := &treeRenderer{limit: maxTreeEntries}
			r.render(target, 0, args.MaxDepth)
			display := ws.Rel(target)
			if display == "." {
				display = "/"
			}
			return OK(TreeData{Path: display, Tree: r.b.String()}), nil
		},
	}
}

type treeRenderer struct {
	b         strings.Builder
	entries   int
	limit     int
	truncated bool
}

func (r *treeRenderer) render(dir string, depth, maxDepth int) {
	if r.truncated || depth >= maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || (e.IsDir() && skippedDirs[name]) {
			continue
		}
		if r.entries >= r.limit {
			r.b.WriteString("...\n")
			r.truncated = true
			return
		}
		r.entries++
		indent := strings.Repeat("  ", depth)
		if e.IsDir() {
			r.b.WriteString(indent + name + "/\n")
			r.render(filepath.Join(dir, name), depth+1, maxDepth)
			if r.truncated {
				return
			}
		} else {
			r.b.WriteString(indent + name + "\n")
		}
	}
}
