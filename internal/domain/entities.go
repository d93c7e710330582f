package domain

import "time"

// Document is a source file read fresh on each indexing pass.
// It is never persisted itself; its fragments are.
type Document struct {
	Path    string
	Text    string
	Lang    string
	ModTime time.Time
}

// Fragment is a contiguous slice of a document's text. Fragments from
// the same document may overlap by the configured window but together
// cover the whole text. A fragment is immutable once created; changed
// file content produces new fragment IDs and the old ones are pruned.
type Fragment struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Hash        string `json:"hash"`
	Text        string `json:"text"`
}

// ScoredFragment pairs a fragment with its similarity score.
type ScoredFragment struct {
	Fragment Fragment
	Score    float64
}

// Citation points at a fragment that was placed in the model's context.
type Citation struct {
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
}

// Answer is the model's response together with the fragments it saw.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Match is a single exact-search hit. Line is 1-based.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// OutlineEntry is one top-level declaration found in a file. Text is
// the declaration-opening line with trailing punctuation trimmed.
type OutlineEntry struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Stats describes the current state of the index.
type Stats struct {
	Fragments int    `json:"fragments"`
	Files     int    `json:"files"`
	Dimension int    `json:"dimension"`
	Model     string `json:"model"`
}
