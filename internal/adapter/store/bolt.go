package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"codeagent/internal/domain"
	"codeagent/internal/port"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
)

// BoltVectorStore persists index entries in BoltDB and searches them
// brute-force by cosine similarity. All entries are mirrored in memory,
// so search never touches disk.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	entries   map[string]storedEntry
}

type storedEntry struct {
	Fragment domain.Fragment `json:"fragment"`
	Vector   []float32       `json:"vector"`
}

// OpenBolt opens (or creates) the index database at path.
func OpenBolt(path string, dimension int) (*BoltVectorStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEntries, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltVectorStore{
		db:        db,
		dimension: dimension,
		entries:   make(map[string]storedEntry),
	}
	if err := s.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load index entries: %w", err)
	}

	return s, nil
}

func (s *BoltVectorStore) loadEntries() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.entries[string(k)] = stored
			return nil
		})
	})
}

func (s *BoltVectorStore) Upsert(ctx context.Context, entries []port.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("entries bucket not found")
		}

		for _, e := range entries {
			if len(e.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(e.Vector))
			}

			stored := storedEntry{Fragment: e.Fragment, Vector: e.Vector}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.Fragment.ID), data); err != nil {
				return err
			}
			s.entries[e.Fragment.ID] = stored
		}

		return nil
	})
}

func (s *BoltVectorStore) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredFragment, error) {
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

func (s *BoltVectorStore) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.entries, id)
		}
		return nil
	})
}

func (s *BoltVectorStore) ListIDs(ctx context.Context) ([]string, error) {
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

// ListFragments returns every stored fragment without its vector,
// sorted by path and start offset.
func (s *BoltVectorStore) ListFragments(ctx context.Context) ([]domain.Fragment, error) {
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

func (s *BoltVectorStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Clear removes every entry but keeps schema metadata.
func (s *BoltVectorStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketEntries) != nil {
			if err := tx.DeleteBucket(bucketEntries); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketEntries)
		return err
	})
	if err != nil {
		return err
	}

	s.entries = make(map[string]storedEntry)
	return nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
