package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"codeagent/internal/domain"
)

// Unit selects how chunk size and overlap are measured.
const (
	UnitChars = "chars"
	UnitLines = "lines"
)

// TextChunker splits document text into overlapping fragments. Every
// fragment is at most size units long and consecutive fragments overlap
// by exactly the configured overlap, except that the final fragment may
// be shorter. The fragments together cover the full text.
type TextChunker struct {
	size    int
	overlap int
	unit    string
}

// NewTextChunker creates a chunker. overlap must be smaller than size.
func NewTextChunker(size, overlap int, unit string) (*TextChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d", overlap)
	}
	if unit != UnitChars && unit != UnitLines {
		return nil, fmt.Errorf("unknown chunk unit: %q", unit)
	}
	return &TextChunker{size: size, overlap: overlap, unit: unit}, nil
}

// Chunk splits doc.Text into fragments. A document shorter than one
// chunk yields exactly one fragment equal to the whole text; an empty
// document yields none.
func (c *TextChunker) Chunk(doc domain.Document) ([]domain.Fragment, error) {
	if len(strings.TrimSpace(doc.Text)) == 0 {
		return nil, nil
	}
	if c.unit == UnitLines {
		return c.chunkLines(doc), nil
	}
	return c.chunkChars(doc), nil
}

// chunkChars windows over runes while recording byte offsets, so
// multi-byte characters never split and offsets stay valid for slicing.
func (c *TextChunker) chunkChars(doc domain.Document) []domain.Fragment {
	text := doc.Text

	// offsets[i] is the byte offset of rune i; the final element is len(text).
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	runes := len(offsets) - 1

	step := c.size - c.overlap
	var fragments []domain.Fragment

	for start := 0; start < runes; start += step {
		end := start + c.size
		if end > runes {
			end = runes
		}

		startByte := offsets[start]
		endByte := offsets[end]
		fragments = append(fragments, newFragment(doc, text[startByte:endByte], startByte, endByte))

		if end == runes {
			break
		}
	}

	return fragments
}

func (c *TextChunker) chunkLines(doc domain.Document) []domain.Fragment {
	text := doc.Text
	lines := strings.SplitAfter(text, "\n")
	// SplitAfter leaves a trailing empty element when text ends in a newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	step := c.size - c.overlap
	var fragments []domain.Fragment
	startByte := 0
	byteAt := make([]int, len(lines)+1)
	for i, line := range lines {
		byteAt[i] = startByte
		startByte += len(line)
	}
	byteAt[len(lines)] = startByte

	for start := 0; start < len(lines); start += step {
		end := start + c.size
		if end > len(lines) {
			end = len(lines)
		}

		sb, eb := byteAt[start], byteAt[end]
		fragments = append(fragments, newFragment(doc, text[sb:eb], sb, eb))

		if end == len(lines) {
			break
		}
	}

	return fragments
}

// exceeds reports whether text is larger than one chunk in this
// chunker's unit.
func (c *TextChunker) exceeds(text string) bool {
	if c.unit == UnitLines {
		n := strings.Count(text, "\n")
		if len(text) > 0 && !strings.HasSuffix(text, "\n") {
			n++
		}
		return n > c.size
	}
	return utf8.RuneCountInString(text) > c.size
}

func newFragment(doc domain.Document, text string, startByte, endByte int) domain.Fragment {
	startLine, endLine := lineSpan(doc.Text, startByte, endByte)
	hash := hashText(text)
	return domain.Fragment{
		ID:          fragmentID(doc.Path, startByte, hash),
		Path:        doc.Path,
		StartOffset: startByte,
		EndOffset:   endByte,
		StartLine:   startLine,
		EndLine:     endLine,
		Hash:        hash,
		Text:        text,
	}
}

// lineSpan returns the 1-based line range covered by text[start:end].
func lineSpan(text string, start, end int) (int, int) {
	startLine := 1 + strings.Count(text[:start], "\n")
	if end <= start {
		return startLine, startLine
	}
	endLine := 1 + strings.Count(text[:end], "\n")
	if text[end-1] == '\n' {
		endLine--
	}
	return startLine, endLine
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

// fragmentID derives a stable identifier from the fragment's position
// and content, so unchanged content keeps its ID across passes and
// changed content produces a new one.
func fragmentID(path string, startOffset int, hash string) string {
	data := fmt.Sprintf("%s:%d:%s", path, startOffset, hash)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:8])
}
