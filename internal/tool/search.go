package tool

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"

	"codeagent/internal/domain"
	"codeagent/internal/usecase"
)

const defaultSearchTopK = 5

// SearchArgs are the arguments of the semantic_search tool.
type SearchArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// SearchHit is one semantic search result.
type SearchHit struct {
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
	Text      string  `json:"text"`
}

// SearchData is the payload of a successful semantic_search call.
type SearchData struct {
	Hits []SearchHit `json:"hits"`
}

// NewSemanticSearch builds the semantic_search tool on top of the
// query service.
func NewSemanticSearch(query *usecase.QueryService) Tool {
	return Tool{
		Name:        "semantic_search",
		Description: "Search the indexed codebase by meaning. Returns the code fragments most relevant to a natural-language query, with file paths and line ranges.",
		Parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "What to look for, in natural language",
				},
				"top_k": {
					Type:        jsonschema.Integer,
					Description: "Number of results to return (default 5)",
				},
			},
			Required: []string{"query"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var args SearchArgs
			if terr := decodeArgs("semantic_search", raw, &args); terr != nil {
				return Fail(terr), nil
			}
			if args.Query == "" {
				return Fail(domain.NewToolError("semantic_search", domain.ToolErrInvalidArgs, "query is required")), nil
			}
			if args.TopK <= 0 {
				args.TopK = defaultSearchTopK
			}

			fragments, err := query.Query(ctx, args.Query, args.TopK)
			if err != nil {
				if ctx.Err() != nil {
					return Result{}, err
				}
				return Fail(domain.NewToolError("semantic_search", domain.ToolErrIO, err.Error())), nil
			}

			hits := make([]SearchHit, 0, len(fragments))
			for _, f := range fragments {
				hits = append(hits, SearchHit{
					Path:      f.Fragment.Path,
					StartLine: f.Fragment.StartLine,
					EndLine:   f.Fragment.EndLine,
					Score:     f.Score,
					Text:      f.Fragment.Text,
				})
			}
			return OK(SearchData{Hits: hits}), nil
		},
	}
}
