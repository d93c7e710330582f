package fs

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"codeagent/internal/port"
)

// Scanner walks a directory tree and yields candidate files for
// indexing. Includes and excludes are doublestar globs matched against
// the path relative to the scanned root.
type Scanner struct {
	includes []string
	excludes []string
	maxSize  int64
	logger   *slog.Logger
}

// NewScanner creates a scanner. maxSize <= 0 disables the size cap.
func NewScanner(includes, excludes []string, maxSize int64, logger *slog.Logger) *Scanner {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		includes: includes,
		excludes: excludes,
		maxSize:  maxSize,
		logger:   logger,
	}
}

// Scan walks root and returns the files passing the filters, with paths
// relative to root. Unreadable paths are logged and skipped. Symlinks
// are never followed, which also breaks symlink cycles.
func (s *Scanner) Scan(root string) ([]port.FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []port.FileEntry

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && s.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if !s.shouldInclude(relPath) || s.shouldExclude(relPath) {
			return nil
		}
		if s.maxSize > 0 && info.Size() > s.maxSize {
			s.logger.Warn("skipping oversized file", "path", relPath, "size", info.Size())
			return nil
		}
		if binary, err := looksBinary(path); err != nil {
			s.logger.Warn("skipping unreadable file", "path", relPath, "error", err)
			return nil
		} else if binary {
			return nil
		}

		files = append(files, port.FileEntry{
			Path:    relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	return files, err
}

func (s *Scanner) shouldInclude(path string) bool {
	for _, pattern := range s.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (s *Scanner) shouldExclude(path string) bool {
	for _, pattern := range s.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// looksBinary sniffs the first bytes of a file for NUL, which text
// files do not contain.
func looksBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

// ReadFile reads a file as a string.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
