package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"codeagent/config"
	"codeagent/internal/adapter/store"
	"codeagent/internal/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	Long: `Report what the index currently holds: file and fragment counts plus
the embedding model it was built with.

Examples:
  codeagent status
  codeagent status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

// fragmentLister is the store capability status needs beyond the port.
// Every backend implements it.
type fragmentLister interface {
	ListFragments(ctx context.Context) ([]domain.Fragment, error)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	if err := requireIndex(cfg, GetRootDir()); err != nil {
		return err
	}

	// Reading stats needs no API key, so a missing key must not fail the
	// command; without an embedder the dimension may stay unknown.
	dim := cfg.Embedding.Dimension
	if embedder, err := newEmbedder(cfg); err == nil {
		dim = embedder.Dimension()
	}

	st, err := openStore(ctx, cfg, GetRootDir(), dim)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	count, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count fragments: %w", err)
	}

	files := 0
	if lister, ok := st.(fragmentLister); ok {
		fragments, err := lister.ListFragments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list fragments: %w", err)
		}
		seen := make(map[string]bool, len(fragments))
		for _, f := range fragments {
			seen[f.Path] = true
		}
		files = len(seen)
	}

	stats := domain.Stats{
		Fragments: count,
		Files:     files,
		Dimension: dim,
		Model:     cfg.Embedding.Model,
	}

	if statusJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Index status:\n")
	fmt.Printf("  Backend:   %s\n", cfg.Store.Backend)
	fmt.Printf("  Files:     %d\n", stats.Files)
	fmt.Printf("  Fragments: %d\n", stats.Fragments)
	if stats.Dimension > 0 {
		fmt.Printf("  Dimension: %d\n", stats.Dimension)
	}
	fmt.Printf("  Model:     %s (%s)\n", stats.Model, cfg.Embedding.Provider)

	if bolt, ok := st.(*store.BoltVectorStore); ok {
		if info, err := bolt.SchemaInfo(); err == nil && info.Version > 0 {
			fmt.Printf("  Schema:    v%d\n", info.Version)
		}
		fmt.Printf("  Location:  %s\n", config.IndexDBPath(GetRootDir()))
	} else {
		fmt.Printf("  Location:  %s (collection %s)\n", cfg.Store.Qdrant.URL, cfg.Store.Qdrant.Collection)
	}
	return nil
}
