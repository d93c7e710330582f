package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeagent/internal/adapter/fs"
	"codeagent/internal/domain"
	"codeagent/internal/security"
	"codeagent/internal/tool"
	"codeagent/internal/usecase"
)

type stubRetriever struct {
	fragments []domain.ScoredFragment
}

func (r *stubRetriever) Retrieve(context.Context, string, int) ([]domain.ScoredFragment, error) {
	return r.fragments, nil
}

type stubChat struct {
	reply string
	err   error
}

func (c *stubChat) Generate(context.Context, string, string) (string, error) {
	return c.reply, c.err
}

func (c *stubChat) ModelName() string { return "stub" }

type serverFixture struct {
	server *Server
	health *HealthStatus
	failIx bool
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"src/main.go": "package main\n\nfunc main() {\n\tfindNeedle()\n}\n",
		"src/util.go": "package main\n\nfunc findNeedle() string {\n\treturn \"needle\"\n}\n",
		"README.md":   "run codeagent init first\n",
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

	ws, err := security.NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	scanner := fs.NewScanner([]string{"**/*.go", "**/*.md"}, nil, 1<<20, nil)

	registry := tool.NewRegistry()
	registry.MustRegister(
		tool.NewExactSearch(ws, scanner),
		tool.NewDirectoryTree(ws),
		tool.NewFileOutline(ws),
		tool.NewReadFile(ws),
	)

	retriever := &stubRetriever{fragments: []domain.ScoredFragment{
		{
			Fragment: domain.Fragment{ID: "f1", Path: "src/util.go", Text: "func findNeedle() string", StartLine: 3, EndLine: 5},
			Score:    0.8,
		},
	}}
	ask := usecase.NewAskService(
		usecase.NewQueryService(retriever, nil, 0),
		&stubChat{reply: "findNeedle returns the needle [1]."},
		5,
	)

	f := &serverFixture{health: &HealthStatus{Status: "ok", Fragments: 2, LLMReady: true}}
	f.server = NewServer(Deps{
		Ask:      ask,
		Registry: registry,
		Index: func(ctx context.Context, path string) (*usecase.IndexResult, error) {
			if f.failIx {
				return nil, errors.New("embedding service unreachable")
			}
			return &usecase.IndexResult{FilesScanned: 3, Fragments: 6, Embedded: 6}, nil
		},
		Health:  func(context.Context) HealthStatus { return *f.health },
		Version: "1.2.3",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestInfoEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info serviceInfo
	decodeInto(t, rec, &info)
	if info.Service != "codeagent" || info.Version != "1.2.3" {
		t.Errorf("info = %+v", info)
	}
	if len(info.Endpoints) != 7 {
		t.Errorf("endpoints = %d, want 7", len(info.Endpoints))
	}

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestInfoOnlyAtRoot(t *testing.T) {
	f := newServerFixture(t)
	if rec := f.do(t, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status HealthStatus
	decodeInto(t, rec, &status)
	if status.Fragments != 2 || !status.LLMReady {
		t.Errorf("health = %+v", status)
	}

	f.health.Status = "degraded"
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
}

func TestAskEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/ask", `{"query":"what does findNeedle do"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var answer domain.Answer
	decodeInto(t, rec, &answer)
	if !strings.Contains(answer.Text, "findNeedle") {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].Path != "src/util.go" {
		t.Errorf("citations = %+v", answer.Citations)
	}
}

func TestAskEndpoint_RequiresQuery(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/api/ask", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var er ErrorResponse
	decodeInto(t, rec, &er)
	if er.Error != "bad_request" {
		t.Errorf("error = %q", er.Error)
	}
}

func TestSearchEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/search", `{"pattern":"findNeedle"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var data tool.GrepData
	decodeInto(t, rec, &data)
	if len(data.Matches) != 2 {
		t.Errorf("matches = %+v", data.Matches)
	}
}

func TestSearchEndpoint_InvalidRegex(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/api/search", `{"pattern":"(oops","regex":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var er ErrorResponse
	decodeInto(t, rec, &er)
	if er.Error != domain.ToolErrInvalidRegex {
		t.Errorf("error = %q", er.Error)
	}
}

func TestReadEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/read", `{"path":"README.md"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var data tool.ReadData
	decodeInto(t, rec, &data)
	if !strings.Contains(data.Content, "codeagent init") {
		t.Errorf("content = %q", data.Content)
	}
}

func TestReadEndpoint_TraversalForbidden(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/api/read", `{"path":"../../etc/passwd"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestTreeEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tree", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var data tool.TreeData
	decodeInto(t, rec, &data)
	if !strings.Contains(data.Tree, "src/") || !strings.Contains(data.Tree, "README.md") {
		t.Errorf("tree = %q", data.Tree)
	}
}

func TestOutlineEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/outline", `{"path":"src/util.go"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var data tool.OutlineData
	decodeInto(t, rec, &data)
	if len(data.Outline) != 1 || !strings.Contains(data.Outline[0].Text, "findNeedle") {
		t.Errorf("outline = %+v", data.Outline)
	}
}

func TestInitEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/init", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp initResponse
	decodeInto(t, rec, &resp)
	if resp.Files != 3 || resp.Fragments != 6 {
		t.Errorf("init = %+v", resp)
	}

	f.failIx = true
	if rec := f.do(t, http.MethodPost, "/api/init", `{}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("failed init status = %d, want 500", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newServerFixture(t)
	if rec := f.do(t, http.MethodGet, "/api/ask", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), recoveryMiddleware(logger))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
