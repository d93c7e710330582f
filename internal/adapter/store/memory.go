package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"codeagent/internal/domain"
	"codeagent/internal/port"
)

// MemoryVectorStore keeps the whole index in memory. Nothing survives
// process exit; it exists for tests and throwaway sessions.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]storedEntry
}

func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{
		dimension: dimension,
		entries:   make(map[string]storedEntry),
	}
}

func (s *MemoryVectorStore) Upsert(ctx context.Context, entries []port.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(e.Vector))
		}
		s.entries[e.Fragment.ID] = storedEntry{Fragment: e.Fragment, Vector: e.Vector}
	}
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	if len(s.entries) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredFragment, 0, len(s.entries))
	for _, e := range s.entries {
		scored = append(scored, domain.ScoredFragment{
			Fragment: e.Fragment,
			Score:    cosineSimilarity(vector, e.Vector),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (s *MemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *MemoryVectorStore) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryVectorStore) ListFragments(ctx context.Context) ([]domain.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fragments := make([]domain.Fragment, 0, len(s.entries))
	for _, e := range s.entries {
		fragments = append(fragments, e.Fragment)
	}
	sort.Slice(fragments, func(i, j int) bool {
		if fragments[i].Path != fragments[j].Path {
			return fragments[i].Path < fragments[j].Path
		}
		return fragments[i].StartOffset < fragments[j].StartOffset
	})
	return fragments, nil
}

func (s *MemoryVectorStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryVectorStore) Close() error {
	return nil
}
