package chunker

// CodeUnit is one top-level declaration of a source file, identified by
// the byte range it occupies in the original text. A declaration's doc
// comment belongs to its range.
type CodeUnit struct {
	Kind        string // "package", "import", "func", "method", "type", "const", "var"
	Name        string
	StartOffset int
	EndOffset   int
}

// LanguageParser splits source text into declaration-level units, in
// source order and non-overlapping.
type LanguageParser interface {
	Parse(content string) ([]CodeUnit, error)
	Language() string
}
