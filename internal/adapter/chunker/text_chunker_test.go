package chunker

import (
	"strings"
	"testing"

	"codeagent/internal/domain"
)

func doc(path, text string) domain.Document {
	return domain.Document{Path: path, Text: text, Lang: "go"}
}

// reconstruct rebuilds the original text from overlapping fragments
// using their byte offsets.
func reconstruct(t *testing.T, fragments []domain.Fragment) string {
	t.Helper()
	var sb strings.Builder
	covered := 0
	for i, f := range fragments {
		if f.StartOffset > covered {
			t.Fatalf("fragment %d leaves a gap: covered to %d, starts at %d", i, covered, f.StartOffset)
		}
		if f.EndOffset > covered {
			sb.WriteString(f.Text[covered-f.StartOffset:])
			covered = f.EndOffset
		}
	}
	return sb.String()
}

func TestChunk_CoversFullText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("line with some words and punctuation, number ")
		sb.WriteString(strings.Repeat("x", i%7))
		sb.WriteString("\n")
	}
	text := sb.String()

	c, err := NewTextChunker(500, 50, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := c.Chunk(doc("big.go", text))
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) < 2 {
		t.Fatalf("expected multiple fragments, got %d", len(fragments))
	}

	if got := reconstruct(t, fragments); got != text {
		t.Errorf("reconstructed text differs from original (%d vs %d bytes)", len(got), len(text))
	}
}

func TestChunk_ExactOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100) // 1000 chars, ASCII

	c, err := NewTextChunker(300, 60, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := c.Chunk(doc("f.txt", text))
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(fragments); i++ {
		overlap := fragments[i-1].EndOffset - fragments[i].StartOffset
		if i < len(fragments)-1 && overlap != 60 {
			t.Errorf("fragments %d/%d overlap by %d, want 60", i-1, i, overlap)
		}
		if fragments[i].EndOffset-fragments[i].StartOffset > 300 {
			t.Errorf("fragment %d exceeds chunk size", i)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("some code here\n", 200)
	c, err := NewTextChunker(400, 40, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	first, err := c.Chunk(doc("a/b.go", text))
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Chunk(doc("a/b.go", text))
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("fragment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("fragment %d ID changed between runs", i)
		}
		if first[i].StartOffset != second[i].StartOffset || first[i].EndOffset != second[i].EndOffset {
			t.Errorf("fragment %d boundaries changed between runs", i)
		}
	}
}

func TestChunk_ShortDocumentSingleFragment(t *testing.T) {
	text := "package main\n\nfunc main() {}\n"
	c, err := NewTextChunker(4000, 400, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := c.Chunk(doc("main.go", text))
	if err != nil {
		t.Fatal(err)
	}

	if len(fragments) != 1 {
		t.Fatalf("expected exactly one fragment, got %d", len(fragments))
	}
	if fragments[0].Text != text {
		t.Error("single fragment should equal the whole text")
	}
	if fragments[0].StartLine != 1 {
		t.Errorf("expected StartLine=1, got %d", fragments[0].StartLine)
	}
	if fragments[0].EndLine != 3 {
		t.Errorf("expected EndLine=3, got %d", fragments[0].EndLine)
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	c, err := NewTextChunker(100, 10, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := c.Chunk(doc("empty.go", "   \n  "))
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) != 0 {
		t.Errorf("expected no fragments for blank text, got %d", len(fragments))
	}
}

func TestChunk_LineUnit(t *testing.T) {
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, "line")
	}
	text := strings.Join(lines, "\n") + "\n"

	c, err := NewTextChunker(10, 2, UnitLines)
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := c.Chunk(doc("f.txt", text))
	if err != nil {
		t.Fatal(err)
	}

	if got := reconstruct(t, fragments); got != text {
		t.Error("line-unit fragments do not cover the text")
	}
	if fragments[0].StartLine != 1 || fragments[0].EndLine != 10 {
		t.Errorf("first fragment lines = %d-%d, want 1-10", fragments[0].StartLine, fragments[0].EndLine)
	}
	if fragments[1].StartLine != 9 {
		t.Errorf("second fragment should start at line 9, got %d", fragments[1].StartLine)
	}
}

func TestChunk_ContentChangeChangesID(t *testing.T) {
	c, err := NewTextChunker(4000, 400, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	before, err := c.Chunk(doc("x.go", "package x\nfunc A() {}\n"))
	if err != nil {
		t.Fatal(err)
	}
	after, err := c.Chunk(doc("x.go", "package x\nfunc B() {}\n"))
	if err != nil {
		t.Fatal(err)
	}

	if before[0].ID == after[0].ID {
		t.Error("changed content must produce a new fragment ID")
	}
}

func TestChunk_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("héllo wörld ★ ", 100)

	c, err := NewTextChunker(50, 10, UnitChars)
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := c.Chunk(doc("uni.txt", text))
	if err != nil {
		t.Fatal(err)
	}

	if got := reconstruct(t, fragments); got != text {
		t.Error("multibyte text not reconstructed exactly")
	}
	for i, f := range fragments {
		if !strings.HasPrefix(text[f.StartOffset:], f.Text) {
			t.Errorf("fragment %d text does not match its offsets", i)
		}
	}
}

func TestNewTextChunker_Validation(t *testing.T) {
	if _, err := NewTextChunker(0, 0, UnitChars); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := NewTextChunker(100, 100, UnitChars); err == nil {
		t.Error("expected error for overlap == size")
	}
	if _, err := NewTextChunker(100, 10, "words"); err == nil {
		t.Error("expected error for unknown unit")
	}
}
