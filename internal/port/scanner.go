package port

import "time"

// FileEntry describes one candidate file found by a scan. Path is
// relative to the scanned root.
type FileEntry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Scanner walks a directory tree and yields the files worth indexing.
// A scan is finite and restartable; unreadable paths are skipped with a
// warning, never fatal.
type Scanner interface {
	Scan(root string) ([]FileEntry, error)
}
