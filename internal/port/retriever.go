package port

import (
	"context"

	"codeagent/internal/domain"
)

// Retriever finds the indexed fragments most similar to a query.
type Retriever interface {
	// Retrieve embeds the query and returns up to k fragments,
	// descending by similarity score.
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredFragment, error)
}

// DiversityReranker reorders retrieved fragments to reduce redundancy.
type DiversityReranker interface {
	Rerank(fragments []domain.ScoredFragment, k int) []domain.ScoredFragment
}
