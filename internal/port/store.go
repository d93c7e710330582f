package port

import (
	"context"

	"codeagent/internal/domain"
)

// IndexEntry is the persisted (fragment, vector) tuple. The store owns
// its on-disk layout; callers only upsert by fragment ID.
type IndexEntry struct {
	Fragment domain.Fragment
	Vector   []float32
}

// VectorStore persists index entries and answers nearest-neighbor
// queries by cosine similarity.
type VectorStore interface {
	// Upsert adds or replaces entries keyed by fragment ID.
	Upsert(ctx context.Context, entries []IndexEntry) error

	// Search returns the k entries nearest to the query vector,
	// descending by score. An empty store returns an empty result.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredFragment, error)

	// Delete removes entries by fragment ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// ListIDs returns the IDs of all stored entries.
	ListIDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	Close() error
}
