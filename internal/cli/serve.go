package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codeagent/config"
	"codeagent/internal/adapter/cache"
	"codeagent/internal/adapter/retriever"
	"codeagent/internal/api"
	"codeagent/internal/security"
	"codeagent/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over HTTP",
	Long: `Expose ask, search, tree, outline, read and init as a JSON API. The
server answers for exactly one workspace, fixed at startup.

Examples:
  codeagent serve
  codeagent serve --addr 0.0.0.0:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Store.Backend == "local" {
		if err := config.EnsureStateDir(GetRootDir()); err != nil {
			return fmt.Errorf("failed to create .codeagent directory: %w", err)
		}
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := openStore(ctx, cfg, GetRootDir(), embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	ws, err := security.NewWorkspace(GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	chat, err := newChatModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	// Served queries repeat; cache retrievals and invalidate on re-index.
	qc := cache.NewQueryCache(256, 5*time.Minute)
	rt := cache.NewCachedRetriever(retriever.NewSemanticRetriever(st, embedder), qc)
	query := newQueryService(rt, cfg)
	ask := usecase.NewAskService(query, chat, cfg.Retrieve.TopK)

	reg, err := newToolRegistry(ws, cfg, query)
	if err != nil {
		return fmt.Errorf("failed to build tools: %w", err)
	}

	logger := slog.Default()

	// One indexing pass at a time; concurrent init requests queue up.
	var indexMu sync.Mutex
	indexFn := func(ctx context.Context, path string) (*usecase.IndexResult, error) {
		if path != "" {
			resolved, err := ws.Resolve(path)
			if err != nil {
				return nil, err
			}
			if resolved != ws.Root() {
				return nil, fmt.Errorf("indexing is fixed to the server workspace %s", ws.Root())
			}
		}

		indexMu.Lock()
		defer indexMu.Unlock()

		if _, err := checkRebuild(st, cfg); err != nil {
			return nil, err
		}
		chk, err := newChunker(cfg)
		if err != nil {
			return nil, err
		}
		indexer := usecase.NewIndexer(newScanner(cfg), chk, embedder, st, usecase.IndexOptions{
			BatchSize: cfg.Embedding.BatchSize,
			Workers:   cfg.Embedding.Workers,
			Logger:    logger,
		})
		result, err := indexer.Index(ctx, ws.Root())
		if err != nil {
			return nil, err
		}
		if err := markBuilt(st, cfg); err != nil {
			return nil, err
		}
		qc.Invalidate()
		return result, nil
	}

	healthFn := func(ctx context.Context) api.HealthStatus {
		status := api.HealthStatus{Status: "ok"}
		count, err := st.Count(ctx)
		if err != nil {
			status.Status = "degraded"
		} else {
			status.Fragments = count
		}
		_, keyErr := cfg.LLMAPIKey()
		status.LLMReady = keyErr == nil
		return status
	}

	addr := cfg.API.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := api.NewServer(api.Deps{
		Ask:      ask,
		Registry: reg,
		Index:    indexFn,
		Health:   healthFn,
		Version:  rootCmd.Version,
		Logger:   logger,
	})

	fmt.Printf("Serving %s on %s\n", GetRootDir(), addr)
	return server.Run(ctx, addr)
}
