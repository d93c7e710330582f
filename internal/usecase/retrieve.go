package usecase

import (
	"context"

	"codeagent/internal/domain"
	"codeagent/internal/port"
)

// QueryService handles semantic search over the index.
type QueryService struct {
	retriever port.Retriever
	reranker  port.DiversityReranker
	minScore  float64 // drop results below this score (0 = disabled)
}

func NewQueryService(retriever port.Retriever, reranker port.DiversityReranker, minScore float64) *QueryService {
	return &QueryService{
		retriever: retriever,
		reranker:  reranker,
		minScore:  minScore,
	}
}

// Query returns up to topK fragments for the query, best first. An
// empty index yields an empty result.
func (s *QueryService) Query(ctx context.Context, query string, topK int) ([]domain.ScoredFragment, error) {
	fetch := topK
	if s.reranker != nil {
		fetch = topK * 2
	}

	candidates, err := s.retriever.Retrieve(ctx, query, fetch)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := candidates
	if s.reranker != nil {
		results = s.reranker.Rerank(candidates, topK)
	} else if len(results) > topK {
		results = results[:topK]
	}

	if s.minScore > 0 {
		filtered := make([]domain.ScoredFragment, 0, len(results))
		for _, r := range results {
			if r.Score >= s.minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	return results, nil
}
