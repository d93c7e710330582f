package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codeagent/config"
	"codeagent/internal/usecase"
)

var initPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Index the workspace for retrieval",
	Long: `Scan the workspace, split files into fragments, embed them and store
the vectors. The local index lives in .codeagent/index.db within the
indexed directory. A second run only embeds fragments whose content
changed and prunes entries whose source is gone.

Examples:
  codeagent init                      # Index current directory
  codeagent init --path /path/to/app  # Index a specific directory`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initPath, "path", "", "directory to index (default is the workspace directory)")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	path := GetRootDir()
	if initPath != "" {
		var err error
		path, err = filepath.Abs(initPath)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	if cfg.Store.Backend == "local" {
		if err := config.EnsureStateDir(path); err != nil {
			return fmt.Errorf("failed to create .codeagent directory: %w", err)
		}
	}

	st, err := openStore(ctx, cfg, path, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	reason, err := checkRebuild(st, cfg)
	if err != nil {
		return err
	}
	if reason != "" {
		fmt.Printf("Index rebuild required: %s\n", reason)
		fmt.Println("Cleared existing index.")
	}

	chk, err := newChunker(cfg)
	if err != nil {
		return fmt.Errorf("failed to create chunker: %w", err)
	}

	opts := usecase.IndexOptions{
		BatchSize: cfg.Embedding.BatchSize,
		Workers:   cfg.Embedding.Workers,
	}

	// Progress bar only on interactive terminals, so piped output stays
	// machine-readable.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		var bar *progressbar.ProgressBar
		opts.Progress = func(done, total int) {
			if bar == nil {
				bar = newEmbeddingBar(total)
			}
			bar.Set(done)
		}
	}

	indexer := usecase.NewIndexer(newScanner(cfg), chk, embedder, st, opts)

	fmt.Printf("Indexing %s...\n", path)

	result, err := indexer.Index(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if err := markBuilt(st, cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files scanned:   %d\n", result.FilesScanned)
	fmt.Printf("  Files unchanged: %d\n", result.FilesSkipped)
	fmt.Printf("  Fragments:       %d\n", result.Fragments)
	fmt.Printf("  Embedded:        %d\n", result.Embedded)
	if result.Pruned > 0 {
		fmt.Printf("  Pruned:          %d (stale)\n", result.Pruned)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if cfg.Store.Backend == "local" {
		fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(path))
	} else {
		fmt.Printf("\nIndex stored in qdrant collection: %s\n", cfg.Store.Qdrant.Collection)
	}
	return nil
}

func newEmbeddingBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
