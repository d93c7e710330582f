package usecase

import (
	"context"
	"strings"
	"testing"

	"codeagent/internal/domain"
)

type fakeChat struct {
	reply      string
	lastSystem string
	lastUser   string
}

func (c *fakeChat) Generate(_ context.Context, system, user string) (string, error) {
	c.lastSystem = system
	c.lastUser = user
	return c.reply, nil
}

func (c *fakeChat) ModelName() string { return "fake" }

type fixedRetriever struct {
	fragments []domain.ScoredFragment
}

func (r *fixedRetriever) Retrieve(context.Context, string, int) ([]domain.ScoredFragment, error) {
	return r.fragments, nil
}

func TestAsk_BuildsContextAndCitations(t *testing.T) {
	fragments := []domain.ScoredFragment{
		{
			Fragment: domain.Fragment{
				ID: "f1", Path: "auth/login.go", Text: "func Login() error { return nil }",
				StartOffset: 0, EndOffset: 33, StartLine: 5, EndLine: 7,
			},
			Score: 0.9,
		},
		{
			Fragment: domain.Fragment{
				ID: "f2", Path: "auth/token.go", Text: "func Verify(tok string) bool { return true }",
				StartOffset: 100, EndOffset: 145, StartLine: 12, EndLine: 14,
			},
			Score: 0.7,
		},
	}

	chat := &fakeChat{reply: "Login calls Verify [1][2]."}
	svc := NewAskService(NewQueryService(&fixedRetriever{fragments: fragments}, nil, 0), chat, 5)

	answer, err := svc.Ask(context.Background(), "how does login work")
	if err != nil {
		t.Fatal(err)
	}

	if answer.Text != "Login calls Verify [1][2]." {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(answer.Citations))
	}
	if answer.Citations[0].Path != "auth/login.go" || answer.Citations[0].StartLine != 5 {
		t.Errorf("first citation wrong: %+v", answer.Citations[0])
	}

	if !strings.Contains(chat.lastSystem, "auth/login.go") {
		t.Error("system prompt missing fragment path")
	}
	if !strings.Contains(chat.lastSystem, "func Login()") {
		t.Error("system prompt missing fragment text")
	}
	if chat.lastUser != "how does login work" {
		t.Errorf("user prompt = %q", chat.lastUser)
	}
}

func TestAsk_EmptyIndexStillAnswers(t *testing.T) {
	chat := &fakeChat{reply: "I could not find relevant code."}
	svc := NewAskService(NewQueryService(&fixedRetriever{}, nil, 0), chat, 5)

	answer, err := svc.Ask(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Citations) != 0 {
		t.Errorf("expected no citations, got %d", len(answer.Citations))
	}
	if !strings.Contains(chat.lastSystem, "no matching code") {
		t.Error("system prompt should state that no code was found")
	}
}

func TestMergeAdjacentFragments_SplicesOverlap(t *testing.T) {
	text := "0123456789abcdef"
	fragments := []domain.ScoredFragment{
		{
			Fragment: domain.Fragment{ID: "a", Path: "x.go", Text: text[0:10], StartOffset: 0, EndOffset: 10, StartLine: 1, EndLine: 1},
			Score:    0.8,
		},
		{
			Fragment: domain.Fragment{ID: "b", Path: "x.go", Text: text[8:16], StartOffset: 8, EndOffset: 16, StartLine: 1, EndLine: 2},
			Score:    0.9,
		},
	}

	merged := mergeAdjacentFragments(fragments)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged fragment, got %d", len(merged))
	}
	if merged[0].Fragment.Text != text {
		t.Errorf("merged text = %q, want %q", merged[0].Fragment.Text, text)
	}
	if merged[0].Fragment.EndOffset != 16 {
		t.Errorf("EndOffset = %d, want 16", merged[0].Fragment.EndOffset)
	}
	if merged[0].Score != 0.9 {
		t.Errorf("merged score = %f, want max 0.9", merged[0].Score)
	}
	if merged[0].Fragment.EndLine != 2 {
		t.Errorf("EndLine = %d, want 2", merged[0].Fragment.EndLine)
	}
}

func TestMergeAdjacentFragments_KeepsDistinctFiles(t *testing.T) {
	fragments := []domain.ScoredFragment{
		{Fragment: domain.Fragment{ID: "a", Path: "x.go", Text: "aa", StartOffset: 0, EndOffset: 2}, Score: 0.5},
		{Fragment: domain.Fragment{ID: "b", Path: "y.go", Text: "bb", StartOffset: 0, EndOffset: 2}, Score: 0.9},
	}

	merged := mergeAdjacentFragments(fragments)
	if len(merged) != 2 {
		t.Fatalf("fragments from different files must not merge, got %d", len(merged))
	}
	if merged[0].Fragment.Path != "y.go" {
		t.Error("merged results should be sorted by descending score")
	}
}

func TestMergeAdjacentFragments_LeavesGapsAlone(t *testing.T) {
	fragments := []domain.ScoredFragment{
		{Fragment: domain.Fragment{ID: "a", Path: "x.go", Text: "aa", StartOffset: 0, EndOffset: 2}, Score: 0.5},
		{Fragment: domain.Fragment{ID: "b", Path: "x.go", Text: "bb", StartOffset: 10, EndOffset: 12}, Score: 0.4},
	}

	merged := mergeAdjacentFragments(fragments)
	if len(merged) != 2 {
		t.Fatalf("non-adjacent fragments must not merge, got %d", len(merged))
	}
}
