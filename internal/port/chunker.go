package port

import "codeagent/internal/domain"

// Chunker splits a document into fragments that together cover its full
// text. Chunking is deterministic: the same input always yields the
// same fragment boundaries and IDs.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Fragment, error)
}
