package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
	"codeagent/internal/security"
)

// OutlineArgs are the arguments of the file_outline tool.
type OutlineArgs struct {
	Path string `json:"path"`
}

// OutlineData is the payload of a successful file_outline call.
type OutlineData struct {
	Path    string                `json:"path"`
	Lang    string                `json:"lang"`
	Outline []domain.OutlineEntry `json:"outline"`
}

// NewFileOutline builds the file_outline tool. The outline is a
// best-effort scan for declaration-opening lines; an unsupported
// language yields an empty outline, not an error.
func NewFileOutline(ws *security.Workspace) Tool {
	return Tool{
		Name:        "file_outline",
		Description: "List the top-level declarations (functions, types, classes) of a source file with their line numbers. Use before read_file to find the part you need.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"path": {
					Type:        jsonschema.String,
					Description: "The source file to outline",
				},
			},
			Required: []string{"path"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args OutlineArgs
			if terr := decodeArgs("file_outline", raw, &args); terr != nil {
				return Fail(terr), nil
			}
			if args.Path == "" {
				return Fail(domain.NewToolError("file_outline", domain.ToolErrInvalidArgs, "path is required")), nil
			}

			abs, err := ws.Resolve(args.Path)
			if err != nil {
				return Fail(pathToolError("file_outline", args.Path, err)), nil
			}
			f, err := os.Open(abs)
			if err != nil {
				return Fail(domain.NewToolError("file_outline", domain.ToolErrNotFound, args.Path+" does not exist")), nil
			}
			defer f.Close()

			lang := domain.DetectLanguage(abs)
			match := outlineMatcher(lang)
			data := OutlineData{Path: ws.Rel(abs), Lang: lang, Outline: []domain.OutlineEntry{}}
			if match == nil {
				return OK(data), nil
			}

			sc := bufio.NewScanner(f)
			sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			line := 0
			for sc.Scan() {
				line++
				text := sc.Text()
				if !match(text) {
					continue
				}
				data.Outline = append(data.Outline, domain.OutlineEntry{
					Line: line,
					Text: strings.TrimRight(text, " \t{:"),
				})
			}
			return OK(data), nil
		},
	}
}

var shellFuncRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\s*\(\)`)

// outlineMatcher returns a predicate for declaration-opening lines at
// column zero, or nil when the language is not supported.
func outlineMatcher(lang string) func(string) bool {
	switch lang {
	case "go":
		return prefixMatcher("func ", "type ", "var ", "const ")
	case "python":
		return prefixMatcher("def ", "async def ", "class ")
	case "javascript", "typescript":
		return prefixMatcher("function ", "async function ", "class ", "export ", "const ", "interface ", "type ", "enum ")
	case "shell":
		return func(line string) bool {
			return strings.HasPrefix(line, "function ") || shellFuncRe.MatchString(line)
		}
	default:
		return nil
	}
}

func prefixMatcher(prefixes ...string) func(string) bool {
	return func(line string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(line, p) {
				return true
			}
		}
		return false
	}
}
