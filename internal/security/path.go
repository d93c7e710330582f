// Package security enforces the trust boundary between tools and the
// host machine: workspace-rooted path resolution and the execution
// policy for shell commands.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape marks a path that resolves outside the workspace root,
// whether by traversal or through a symlink.
var ErrPathEscape = errors.New("path escapes the workspace")

// Workspace resolves tool-supplied paths against a fixed root directory
// and rejects anything that lands outside it.
type Workspace struct {
	root string
}

// NewWorkspace anchors path resolution at root. The root must exist;
// symlinks in it are resolved once so later containment checks compare
// real paths.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	return &Workspace{root: real}, nil
}

// Root returns the resolved workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve maps a user- or model-supplied path to an absolute path
// inside the workspace. Relative paths are resolved against the root.
// Traversal outside the root and symlinks pointing outside it return
// ErrPathEscape. A path that does not exist yet is accepted as long as
// its nearest existing ancestor stays inside the root, so files can be
// created through it.
func (w *Workspace) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.New("path contains a null byte")
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !w.contains(candidate) {
		return "", fmt.Errorf("%q: %w", path, ErrPathEscape)
	}

	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("resolve %q: %w", path, err)
		}
		parent, perr := filepath.EvalSymlinks(filepath.Dir(candidate))
		if perr != nil {
			if !os.IsNotExist(perr) {
				return "", fmt.Errorf("resolve %q: %w", path, perr)
			}
			return candidate, nil
		}
		real = filepath.Join(parent, filepath.Base(candidate))
	}

	if !w.contains(real) {
		return "", fmt.Errorf("%q: %w", path, ErrPathEscape)
	}
	return real, nil
}

// Rel converts a resolved absolute path back to the slash-separated
// workspace-relative form used in tool results and citations.
func (w *Workspace) Rel(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func (w *Workspace) contains(p string) bool {
	return p == w.root || strings.HasPrefix(p, w.root+string(filepath.Separator))
}
