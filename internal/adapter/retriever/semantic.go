package retriever

import (
	"context"
	"fmt"

	"codeagent/internal/domain"
	"codeagent/internal/port"
)

// SemanticRetriever embeds the query and searches the vector store.
type SemanticRetriever struct {
	store    port.VectorStore
	embedder port.Embedder
}

func NewSemanticRetriever(store port.VectorStore, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		store:    store,
		embedder: embedder,
	}
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredFragment, error) {
	if k <= 0 {
		return nil, &domain.RetrievalError{Stage: "validate", Err: fmt.Errorf("k must be positive, got %d", k)}
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &domain.RetrievalError{Stage: "embed", Err: err}
	}
	if len(embeddings) == 0 {
		return nil, &domain.RetrievalError{Stage: "embed", Err: fmt.Errorf("embedding returned empty result")}
	}

	results, err := r.store.Search(ctx, embeddings[0], k)
	if err != nil {
		return nil, &domain.RetrievalError{Stage: "search", Err: err}
	}

	return results, nil
}
