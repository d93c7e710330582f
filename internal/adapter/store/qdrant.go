package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"codeagent/internal/domain"
	"codeagent/internal/port"
	"codeagent/internal/retry"
)

const scrollPageSize = 512

// QdrantStore keeps index entries in a Qdrant collection over its REST
// API. Fragment IDs are not valid Qdrant point IDs, so each fragment is
// stored under a UUID derived deterministically from its ID, with the
// full fragment in the point payload.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
	retryCfg   retry.Config
}

// NewQdrantStore connects to Qdrant and ensures the collection exists
// with the right vector size.
func NewQdrantStore(ctx context.Context, url, apiKey, collection string, dimension int) (*QdrantStore, error) {
	s := &QdrantStore{
		baseURL:    strings.TrimRight(url, "/"),
		apiKey:     apiKey,
		collection: collection,
		dimension:  dimension,
		client:     &http.Client{Timeout: 20 * time.Second},
		retryCfg:   retry.DefaultConfig(),
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	_, err := s.doRequest(ctx, http.MethodGet, "/collections/"+s.collection, nil)
	if err == nil {
		return nil
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	return retry.Do(ctx, s.retryCfg, func() error {
		_, err := s.doRequest(ctx, http.MethodPut, "/collections/"+s.collection, req)
		return err
	})
}

// pointID maps a fragment ID onto a stable UUID accepted by Qdrant.
func pointID(fragmentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fragmentID)).String()
}

func fragmentPayload(f domain.Fragment) (map[string]any, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return map[string]any{"fragment": m}, nil
}

func fragmentFromPayload(payload map[string]any) (domain.Fragment, error) {
	var f domain.Fragment
	raw, ok := payload["fragment"]
	if !ok {
		return f, fmt.Errorf("point payload has no fragment")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return f, err
	}
	err = json.Unmarshal(data, &f)
	return f, err
}

func (s *QdrantStore) Upsert(ctx context.Context, entries []port.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(e.Vector))
		}
		payload, err := fragmentPayload(e.Fragment)
		if err != nil {
			return err
		}
		points = append(points, map[string]any{
			"id":      pointID(e.Fragment.ID),
			"vector":  e.Vector,
			"payload": payload,
		})
	}

	req := map[string]any{"points": points}
	return retry.Do(ctx, s.retryCfg, func() error {
		_, err := s.doRequest(ctx, http.MethodPut, "/collections/"+s.collection+"/points?wait=true", req)
		return err
	})
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredFragment, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	if k <= 0 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var data []byte
	err := retry.Do(ctx, s.retryCfg, func() error {
		var reqErr error
		data, reqErr = s.doRequest(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", req)
		return reqErr
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]domain.ScoredFragment, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		f, err := fragmentFromPayload(item.Payload)
		if err != nil {
			continue
		}
		results = append(results, domain.ScoredFragment{Fragment: f, Score: item.Score})
	}
	return results, nil
}

func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}

	req := map[string]any{"points": points}
	return retry.Do(ctx, s.retryCfg, func() error {
		_, err := s.doRequest(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete?wait=true", req)
		return err
	})
}

func (s *QdrantStore) ListIDs(ctx context.Context) ([]string, error) {
	fragments, err := s.scrollFragments(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(fragments))
	for _, f := range fragments {
		ids = append(ids, f.ID)
	}
	return ids, nil
}

// ListFragments scrolls the whole collection and returns every stored
// fragment. Intended for maintenance paths, not queries.
func (s *QdrantStore) ListFragments(ctx context.Context) ([]domain.Fragment, error) {
	return s.scrollFragments(ctx)
}

func (s *QdrantStore) scrollFragments(ctx context.Context) ([]domain.Fragment, error) {
	var fragments []domain.Fragment
	var offset any

	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
		}
		if offset != nil {
			req["offset"] = offset
		}

		var data []byte
		err := retry.Do(ctx, s.retryCfg, func() error {
			var reqErr error
			data, reqErr = s.doRequest(ctx, http.MethodPost, "/collections/"+s.collection+"/points/scroll", req)
			return reqErr
		})
		if err != nil {
			return nil, err
		}

		var parsed struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse scroll response: %w", err)
		}

		for _, p := range parsed.Result.Points {
			if f, err := fragmentFromPayload(p.Payload); err == nil {
				fragments = append(fragments, f)
			}
		}

		if parsed.Result.NextPageOffset == nil {
			return fragments, nil
		}
		offset = parsed.Result.NextPageOffset
	}
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	req := map[string]any{"exact": true}

	var data []byte
	err := retry.Do(ctx, s.retryCfg, func() error {
		var reqErr error
		data, reqErr = s.doRequest(ctx, http.MethodPost, "/collections/"+s.collection+"/points/count", req)
		return reqErr
	})
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}
	return parsed.Result.Count, nil
}

func (s *QdrantStore) Close() error {
	return nil
}

func (s *QdrantStore) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.ServiceError{Service: "qdrant", Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ServiceError{
			Service:    "qdrant",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("qdrant status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}
	return data, nil
}
