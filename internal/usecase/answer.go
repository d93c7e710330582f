package usecase

import (
	"context"
	"fmt"
	"sort"

	"codeagent/internal/domain"
	"codeagent/internal/port"
	"codeagent/internal/prompt"
)

// AskService answers questions about the indexed codebase.
type AskService struct {
	query *QueryService
	chat  port.ChatModel
	topK  int
}

func NewAskService(query *QueryService, chat port.ChatModel, topK int) *AskService {
	if topK <= 0 {
		topK = 5
	}
	return &AskService{
		query: query,
		chat:  chat,
		topK:  topK,
	}
}

// Ask retrieves relevant fragments, feeds them to the chat model and
// returns the answer with citations. An empty index still produces an
// answer; the model is told no code was found.
func (s *AskService) Ask(ctx context.Context, question string) (domain.Answer, error) {
	return s.AskK(ctx, question, s.topK)
}

// AskK is Ask with a per-call fragment budget. Non-positive k falls
// back to the configured default.
func (s *AskService) AskK(ctx context.Context, question string, topK int) (domain.Answer, error) {
	if topK <= 0 {
		topK = s.topK
	}
	fragments, err := s.query.Query(ctx, question, topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}

	merged := mergeAdjacentFragments(fragments)

	system, err := prompt.RenderAskSystem(merged)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := s.chat.Generate(ctx, system, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generation failed: %w", err)
	}

	citations := make([]domain.Citation, 0, len(merged))
	for _, f := range merged {
		citations = append(citations, domain.Citation{
			Path:      f.Fragment.Path,
			StartLine: f.Fragment.StartLine,
			EndLine:   f.Fragment.EndLine,
			Score:     f.Score,
		})
	}

	return domain.Answer{Text: text, Citations: citations}, nil
}

// mergeAdjacentFragments joins overlapping or touching fragments from
// the same file into one, splicing the shared overlap out by byte
// offset so text is never duplicated.
func mergeAdjacentFragments(fragments []domain.ScoredFragment) []domain.ScoredFragment {
	if len(fragments) <= 1 {
		return fragments
	}

	byPath := make(map[string][]domain.ScoredFragment)
	var paths []string
	for _, f := range fragments {
		if _, seen := byPath[f.Fragment.Path]; !seen {
			paths = append(paths, f.Fragment.Path)
		}
		byPath[f.Fragment.Path] = append(byPath[f.Fragment.Path], f)
	}

	result := make([]domain.ScoredFragment, 0, len(fragments))
	for _, path := range paths {
		group := byPath[path]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Fragment.StartOffset < group[j].Fragment.StartOffset
		})

		i := 0
		for i < len(group) {
			merged := group[i]
			j := i + 1
			for j < len(group) {
				next := group[j]
				if next.Fragment.StartOffset > merged.Fragment.EndOffset {
					break
				}
				if next.Fragment.EndOffset > merged.Fragment.EndOffset {
					cut := merged.Fragment.EndOffset - next.Fragment.StartOffset
					merged.Fragment.Text += next.Fragment.Text[cut:]
					merged.Fragment.EndOffset = next.Fragment.EndOffset
					merged.Fragment.EndLine = next.Fragment.EndLine
				}
				if next.Score > merged.Score {
					merged.Score = next.Score
				}
				j++
			}
			result = append(result, merged)
			i = j
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}
