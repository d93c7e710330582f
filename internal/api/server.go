// Package api exposes the assistant over HTTP: question answering,
// search, file navigation and index management as JSON endpoints.
//
// Routes:
//
//	GET  /            service info and endpoint listing
//	GET  /health      readiness (index present, model key configured)
//	POST /api/ask     answer a question about the indexed code
//	POST /api/search  exact text or regex search
//	POST /api/tree    directory listing
//	POST /api/outline top-level declarations of a file
//	POST /api/read    file contents
//	POST /api/init    run an indexing pass, synchronously
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"codeagent/internal/tool"
	"codeagent/internal/usecase"
)

const (
	// DefaultAddr is used when no listen address is configured.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout caps graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	// Write generously: /api/init runs a whole indexing pass before
	// responding.
	writeTimeout = 10 * time.Minute
	idleTimeout  = 120 * time.Second
)

// IndexFunc runs one indexing pass rooted at path (empty means the
// configured workspace root).
type IndexFunc func(ctx context.Context, path string) (*usecase.IndexResult, error)

// Deps wires the server to the rest of the system.
type Deps struct {
	Ask      *usecase.AskService
	Registry *tool.Registry
	Index    IndexFunc
	Health   HealthFunc
	Version  string
	Logger   *slog.Logger
}

// Server is the REST front end.
type Server struct {
	mux      *http.ServeMux
	ask      *usecase.AskService
	registry *tool.Registry
	index    IndexFunc
	health   HealthFunc
	version  string
	logger   *slog.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(deps Deps) *Server {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		mux:      http.NewServeMux(),
		ask:      deps.Ask,
		registry: deps.Registry,
		index:    deps.Index,
		health:   deps.Health,
		version:  deps.Version,
		logger:   deps.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleInfo)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/ask", s.handleAsk)
	s.mux.HandleFunc("POST /api/search", s.toolEndpoint("exact_search"))
	s.mux.HandleFunc("POST /api/tree", s.toolEndpoint("directory_tree"))
	s.mux.HandleFunc("POST /api/outline", s.toolEndpoint("file_outline"))
	s.mux.HandleFunc("POST /api/read", s.toolEndpoint("read_file"))
	s.mux.HandleFunc("POST /api/init", s.handleInit)
}

// Handler returns the routed handler with middleware applied,
// outermost first: recovery, then request logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run serves until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type serviceInfo struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, serviceInfo{
		Service: "codeagent",
		Version: s.version,
		Endpoints: []string{
			"GET /health",
			"POST /api/ask",
			"POST /api/search",
			"POST /api/tree",
			"POST /api/outline",
			"POST /api/read",
			"POST /api/init",
		},
	})
}
