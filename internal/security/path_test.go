package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	return ws, ws.Root()
}

func TestResolve_RelativeInsideRoot(t *testing.T) {
	ws, root := newTestWorkspace(t)
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "file.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	abs, err := ws.Resolve("sub/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(abs, root) {
		t.Errorf("resolved path %q not under root %q", abs, root)
	}
	if got := ws.Rel(abs); got != "sub/file.txt" {
		t.Errorf("Rel = %q, want sub/file.txt", got)
	}
}

func TestResolve_TraversalRejected(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	for _, path := range []string{
		"../outside.txt",
		"../../etc/passwd",
		"sub/../../escape",
		"/etc/passwd",
	} {
		if _, err := ws.Resolve(path); !errors.Is(err, ErrPathEscape) {
			t.Errorf("Resolve(%q) = %v, want ErrPathEscape", path, err)
		}
	}
}

func TestResolve_NewFileAccepted(t *testing.T) {
	ws, root := newTestWorkspace(t)

	abs, err := ws.Resolve("newdir/newfile.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(abs, root) {
		t.Errorf("resolved path %q not under root %q", abs, root)
	}
}

func TestResolve_SymlinkEscapeRejected(t *testing.T) {
	ws, root := newTestWorkspace(t)

	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := ws.Resolve("link.txt"); !errors.Is(err, ErrPathEscape) {
		t.Errorf("Resolve(link.txt) = %v, want ErrPathEscape", err)
	}
}

func TestResolve_SymlinkedParentRejected(t *testing.T) {
	ws, root := newTestWorkspace(t)

	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "linkdir")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	// The target does not exist, so containment is decided by the
	// resolved parent directory.
	if _, err := ws.Resolve("linkdir/new.txt"); !errors.Is(err, ErrPathEscape) {
		t.Errorf("Resolve(linkdir/new.txt) = %v, want ErrPathEscape", err)
	}
}

func TestResolve_EmptyPath(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	if _, err := ws.Resolve("  "); err == nil {
		t.Error("expected error for blank path")
	}
}
