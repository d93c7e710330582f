package tool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeagent/internal/adapter/fs"
	"codeagent/internal/domain"
)

func grepFixture(t *testing.T) Tool {
	t.Helper()
	ws, root := testWorkspace(t)

	files := map[string]string{
		"main.go":        "package main\n\nfunc main() {\n\tconnectDatabase()\n}\n",
		"db/conn.go":     "package db\n\nfunc connectDatabase() error {\n\treturn nil\n}\n",
		"docs/notes.txt": "connectDatabase is called at startup\n",
	}
	for path, content := range files {
		abs := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	scanner := fs.NewScanner([]string{"**/*.go"}, nil, 1<<20, nil)
	return NewExactSearch(ws, scanner)
}

func TestExactSearch_Literal(t *testing.T) {
	tl := grepFixture(t)

	res := runTool(t, tl, `{"pattern":"connectDatabase"}`)
	if res.Status != StatusOK {
		t.Fatalf("status = %q: %+v", res.Status, res.Error)
	}
	data := res.Data.(GrepData)
	if len(data.Matches) != 2 {
		t.Fatalf("matches = %d, want 2 (txt files are outside scanner includes)", len(data.Matches))
	}
	var paths []string
	for _, m := range data.Matches {
		paths = append(paths, m.Path)
	}
	joined := strings.Join(paths, " ")
	if !strings.Contains(joined, "main.go") || !strings.Contains(joined, "db/conn.go") {
		t.Errorf("paths = %v", paths)
	}
}

func TestExactSearch_Regex(t *testing.T) {
	tl := grepFixture(t)

	res := runTool(t, tl, `{"pattern":"func \\w+\\(\\) error","regex":true}`)
	data := res.Data.(GrepData)
	if len(data.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(data.Matches))
	}
	if data.Matches[0].Path != "db/conn.go" || data.Matches[0].Line != 3 {
		t.Errorf("match = %+v", data.Matches[0])
	}
}

func TestExactSearch_InvalidRegex(t *testing.T) {
	tl := grepFixture(t)
	res := runTool(t, tl, `{"pattern":"(unclosed","regex":true}`)
	wantToolError(t, res, domain.ToolErrInvalidRegex)
}

func TestExactSearch_ScopedToPath(t *testing.T) {
	tl := grepFixture(t)

	res := runTool(t, tl, `{"pattern":"connectDatabase","path":"db"}`)
	data := res.Data.(GrepData)
	if len(data.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(data.Matches))
	}
	if data.Matches[0].Path != "db/conn.go" {
		t.Errorf("path = %q", data.Matches[0].Path)
	}
}

func TestExactSearch_SingleFileTarget(t *testing.T) {
	tl := grepFixture(t)

	res := runTool(t, tl, `{"pattern":"startup","path":"docs/notes.txt"}`)
	data := res.Data.(GrepData)
	if len(data.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(data.Matches))
	}
}

func TestExactSearch_CapsMatches(t *testing.T) {
	ws, root := testWorkspace(t)
	var b strings.Builder
	for i := 0; i < maxGrepMatches+50; i++ {
		b.WriteString("needle\n")
	}
	if err := os.WriteFile(filepath.Join(root, "big.go"), []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	tl := NewExactSearch(ws, fs.NewScanner([]string{"**/*.go"}, nil, 1<<20, nil))

	res := runTool(t, tl, `{"pattern":"needle"}`)
	data := res.Data.(GrepData)
	if len(data.Matches) != maxGrepMatches {
		t.Errorf("matches = %d, want cap %d", len(data.Matches), maxGrepMatches)
	}
	if !data.Truncated {
		t.Error("expected truncated flag")
	}
}

func TestExactSearch_PathEscape(t *testing.T) {
	tl := grepFixture(t)
	res := runTool(t, tl, `{"pattern":"x","path":"../../"}`)
	wantToolError(t, res, domain.ToolErrPathEscape)
}
