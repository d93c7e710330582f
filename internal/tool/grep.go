package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
	"codeagent/internal/port"
	"codeagent/internal/security"
)

const (
	maxGrepMatches  = 200
	maxMatchLineLen = 500
)

// GrepArgs are the arguments of the exact_search tool.
type GrepArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Regex   bool   `json:"regex"`
}

// GrepData is the payload of a successful exact_search call.
type GrepData struct {
	Matches   []domain.Match `json:"matches"`
	Truncated bool           `json:"truncated"`
}

// NewExactSearch builds the exact_search tool. It walks the files the
// scanner would index, so scanner exclusions apply to searches too.
func NewExactSearch(ws *security.Workspace, scanner port.Scanner) Tool {
	return Tool{
		Name:        "exact_search",
		Description: "Search file contents for an exact string or regular expression. Returns matching lines with file paths and line numbers.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"pattern": {
					Type:        jsonschema.String,
					Description: "The text or regular expression to search for",
				},
				"path": {
					Type:        jsonschema.String,
					Description: "File or directory to search under (default: whole workspace)",
				},
				"regex": {
					Type:        jsonschema.Boolean,
					Description: "Interpret pattern as a Go regular expression (default false)",
				},
			},
			Required: []string{"pattern"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args GrepArgs
			if terr := decodeArgs("exact_search", raw, &args); terr != nil {
				return Fail(terr), nil
			}
			if args.Pattern == "" {
				return Fail(domain.NewToolError("exact_search", domain.ToolErrInvalidArgs, "pattern is required")), nil
			}

			match, terr := compileMatcher(args)
			if terr != nil {
				return Fail(terr), nil
			}

			target := ws.Root()
			if args.Path != "" {
				resolved, err := ws.Resolve(args.Path)
				if err != nil {
					return Fail(pathToolError("exact_search", args.Path, err)), nil
				}
				target = resolved
			}

			info, err := os.Stat(target)
			if err != nil {
				return Fail(domain.NewToolError("exact_search", domain.ToolErrNotFound, args.Path+" does not exist")), nil
			}

			data := &GrepData{Matches: []domain.Match{}}
			if !info.IsDir() {
				searchFile(target, ws.Rel(target), match, data)
				return OK(*data), nil
			}

			entries, err := scanner.Scan(target)
			if err != nil {
				return Fail(domain.NewToolError("exact_search", domain.ToolErrIO, err.Error())), nil
			}
			for _, entry := range entries {
				if err := ctx.Err(); err != nil {
					return Result{}, err
				}
				abs := filepath.Join(target, entry.Path)
				searchFile(abs, ws.Rel(abs), match, data)
				if data.Truncated {
					break
				}
			}
			return OK(*data), nil
		},
	}
}

func compileMatcher(args GrepArgs) (func(string) bool, *domain.ToolError) {
	if !args.Regex {
		return func(line string) bool { return strings.Contains(line, args.Pattern) }, nil
	}
	re, err := regexp.Compile(args.Pattern)
	if err != nil {
		return nil, domain.NewToolError("exact_search", domain.ToolErrInvalidRegex, err.Error())
	}
	return re.MatchString, nil
}

// searchFile appends matching lines from one file. Unreadable or
// oddly-encoded files are skipped, never fatal.
func searchFile(abs, display string, match func(string) bool, data *GrepData) {
	f, err := os.Open(abs)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if !match(text) {
			continue
		}
		if runes := []rune(text); len(runes) > maxMatchLineLen {
			text = string(runes[:maxMatchLineLen])
		}
		data.Matches = append(data.Matches, domain.Match{Path: display, Line: line, Text: text})
		if len(data.Matches) >= maxGrepMatches {
			data.Truncated = true
			return
		}
	}
}

// pathToolError maps a workspace resolution failure onto a tool error
// code.
func pathToolError(tool, path string, err error) *domain.ToolError {
	if errors.Is(err, security.ErrPathEscape) {
		return domain.NewToolError(tool, domain.ToolErrPathEscape, err.Error())
	}
	return domain.NewToolError(tool, domain.ToolErrInvalidArgs, "path "+path+": "+err.Error())
}
