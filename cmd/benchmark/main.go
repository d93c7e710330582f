package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"codeagent/config"
	"codeagent/internal/adapter/embedding"
	"codeagent/internal/adapter/retriever"
	"codeagent/internal/adapter/store"
	"codeagent/internal/port"
)

func main() {
	indexPath := flag.String("index", ".", "Path to indexed directory")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -index ./tmp -q \"query\"")
		fmt.Println("\nChecks:")
		fmt.Println("  1. Embedding infrastructure (model connection, vector store)")
		fmt.Println("  2. Semantic similarity of the top results")
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := setupEmbedder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic search not available: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg, *indexPath, embedder.Dimension())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	count, _ := st.Count(ctx)
	if count == 0 {
		fmt.Fprintln(os.Stderr, "Index is empty - run 'codeagent init' first")
		os.Exit(1)
	}

	fmt.Println("SEMANTIC RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Fragments indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	rt := retriever.NewSemanticRetriever(st, embedder)
	results, err := rt.Retrieve(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		os.Exit(1)
	}

	fmt.Printf("Top %d semantic matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := strings.ReplaceAll(r.Fragment.Text, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		totalScore += r.Score

		fmt.Printf("%d. [%s %.3f] %s:L%d-%d\n", i+1, rating(r.Score), r.Score,
			r.Fragment.Path, r.Fragment.StartLine, r.Fragment.EndLine)
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)

	switch {
	case avgScore > 0.5:
		fmt.Println("  Status: GOOD - semantic retrieval working well")
	case avgScore > 0.3:
		fmt.Println("  Status: OK - results are somewhat related")
	default:
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	}
	return "LOW"
}

func setupEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "openai":
		if e.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(e.APIKeyEnv, e.Model, e.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model)
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL)
	case "mock":
		dim := e.Dimension
		if dim <= 0 {
			dim = 256
		}
		return embedding.NewMockEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", e.Provider)
	}
}

func openStore(ctx context.Context, cfg *config.Config, dir string, dimension int) (port.VectorStore, error) {
	if cfg.Store.Backend == "qdrant" {
		apiKey := os.Getenv(cfg.Store.Qdrant.APIKeyEnv)
		return store.NewQdrantStore(ctx, cfg.Store.Qdrant.URL, apiKey, cfg.Store.Qdrant.Collection, dimension)
	}
	return store.OpenBolt(config.IndexDBPath(dir), dimension)
}
