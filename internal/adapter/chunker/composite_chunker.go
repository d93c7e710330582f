package chunker

import (
	"codeagent/internal/domain"
)

// CompositeChunker cuts source files along declaration boundaries where
// a language parser exists and falls back to plain text windows
// everywhere else. A declaration larger than the configured chunk size
// is re-split by the fallback with its offsets preserved, so fragment
// IDs stay stable either way.
type CompositeChunker struct {
	parsers  map[string]LanguageParser
	fallback *TextChunker
}

func NewCompositeChunker(fallback *TextChunker) *CompositeChunker {
	parsers := make(map[string]LanguageParser)
	goParser := NewGoParser()
	parsers[goParser.Language()] = goParser

	return &CompositeChunker{
		parsers:  parsers,
		fallback: fallback,
	}
}

func (c *CompositeChunker) Chunk(doc domain.Document) ([]domain.Fragment, error) {
	parser, ok := c.parsers[doc.Lang]
	if !ok {
		return c.fallback.Chunk(doc)
	}

	units, err := parser.Parse(doc.Text)
	if err != nil || len(units) == 0 {
		// Files that do not parse still get indexed, just without
		// structure.
		return c.fallback.Chunk(doc)
	}

	var fragments []domain.Fragment
	for _, u := range units {
		text := doc.Text[u.StartOffset:u.EndOffset]
		if c.fallback.exceeds(text) {
			parts, err := c.splitOversized(doc, u)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, parts...)
			continue
		}
		fragments = append(fragments, newFragment(doc, text, u.StartOffset, u.EndOffset))
	}
	return fragments, nil
}

// splitOversized windows one unit with the fallback chunker and shifts
// the resulting offsets back into document coordinates.
func (c *CompositeChunker) splitOversized(doc domain.Document, u CodeUnit) ([]domain.Fragment, error) {
	sub := domain.Document{
		Path: doc.Path,
		Text: doc.Text[u.StartOffset:u.EndOffset],
	}
	parts, err := c.fallback.Chunk(sub)
	if err != nil {
		return nil, err
	}

	shifted := make([]domain.Fragment, len(parts))
	for i, p := range parts {
		sb := u.StartOffset + p.StartOffset
		eb := u.StartOffset + p.EndOffset
		shifted[i] = newFragment(doc, doc.Text[sb:eb], sb, eb)
	}
	return shifted, nil
}
