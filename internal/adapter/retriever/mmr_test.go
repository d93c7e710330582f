package retriever

import (
	"testing"

	"codeagent/internal/domain"
)

func frag(id, text string) domain.Fragment {
	return domain.Fragment{ID: id, Path: id + ".go", Text: text}
}

func TestMMRReranking(t *testing.T) {
	reranker := NewMMRReranker(0.7, 0.9)

	candidates := []domain.ScoredFragment{
		{Fragment: frag("c1", "auth login user password"), Score: 1.0},
		{Fragment: frag("c2", "auth login user session"), Score: 0.9},
		{Fragment: frag("c3", "database query sql connection"), Score: 0.8},
		{Fragment: frag("c4", "auth jwt token oauth"), Score: 0.7},
	}

	results := reranker.Rerank(candidates, 3)

	if len(results) == 0 {
		t.Fatal("expected results from MMR reranking")
	}

	if results[0].Fragment.ID != "c1" {
		t.Errorf("expected c1 as first result, got %s", results[0].Fragment.ID)
	}

	c3Idx, c2Idx := -1, -1
	for i, r := range results {
		if r.Fragment.ID == "c3" {
			c3Idx = i
		}
		if r.Fragment.ID == "c2" {
			c2Idx = i
		}
	}

	if c2Idx != -1 && c3Idx != -1 && c3Idx > c2Idx {
		t.Error("expected MMR to prioritize diverse results (c3) over similar results (c2)")
	}
}

func TestMMRDeduplication(t *testing.T) {
	reranker := NewMMRReranker(0.5, 0.3)

	candidates := []domain.ScoredFragment{
		{Fragment: frag("c1", "a b c"), Score: 1.0},
		{Fragment: frag("c2", "a b c"), Score: 0.9},
	}

	results := reranker.Rerank(candidates, 2)

	if len(results) != 1 {
		t.Errorf("expected 1 result after dedup, got %d", len(results))
	}
	if results[0].Fragment.ID != "c1" {
		t.Errorf("expected c1 (highest score), got %s", results[0].Fragment.ID)
	}
}

func TestMMREmptyCandidates(t *testing.T) {
	reranker := NewMMRReranker(0.7, 0.8)

	if results := reranker.Rerank(nil, 10); results != nil {
		t.Errorf("expected nil for empty candidates, got %v", results)
	}
	if results := reranker.Rerank([]domain.ScoredFragment{}, 10); results != nil {
		t.Errorf("expected nil for empty slice, got %v", results)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("func ParseConfig(path string) error {")
	want := []string{"func", "parseconfig", "path", "string", "error"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{name: "identical", a: []string{"a", "b", "c"}, b: []string{"a", "b", "c"}, expected: 1.0},
		{name: "no overlap", a: []string{"a", "b", "c"}, b: []string{"d", "e", "f"}, expected: 0.0},
		{name: "half overlap", a: []string{"a", "b"}, b: []string{"b", "c"}, expected: 1.0 / 3.0},
		{name: "empty a", a: []string{}, b: []string{"a", "b"}, expected: 0.0},
		{name: "empty b", a: []string{"a", "b"}, b: []string{}, expected: 0.0},
		{name: "both empty", a: []string{}, b: []string{}, expected: 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := JaccardSimilarity(tc.a, tc.b)
			if !floatEquals(result, tc.expected, 0.001) {
				t.Errorf("JaccardSimilarity(%v, %v) = %f, expected %f", tc.a, tc.b, result, tc.expected)
			}
		})
	}
}

func floatEquals(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance
}
