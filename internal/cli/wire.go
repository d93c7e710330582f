package cli

import (
	"context"
	"fmt"
	"os"

	"codeagent/config"
	"codeagent/internal/adapter/chunker"
	"codeagent/internal/adapter/embedding"
	"codeagent/internal/adapter/fs"
	"codeagent/internal/adapter/llm"
	"codeagent/internal/adapter/retriever"
	"codeagent/internal/adapter/store"
	"codeagent/internal/port"
	"codeagent/internal/security"
	"codeagent/internal/tool"
	"codeagent/internal/usecase"
)

// openStore opens the configured vector store backend. The local
// backend lives in .codeagent/index.db under dir.
func openStore(ctx context.Context, cfg *config.Config, dir string, dimension int) (port.VectorStore, error) {
	switch cfg.Store.Backend {
	case "qdrant":
		apiKey := os.Getenv(cfg.Store.Qdrant.APIKeyEnv)
		return store.NewQdrantStore(ctx, cfg.Store.Qdrant.URL, apiKey, cfg.Store.Qdrant.Collection, dimension)
	default:
		return store.OpenBolt(config.IndexDBPath(dir), dimension)
	}
}

// requireIndex fails with a hint when the local index has not been
// built yet. The qdrant backend is remote and always reachable by name.
func requireIndex(cfg *config.Config, dir string) error {
	if cfg.Store.Backend != "local" {
		return nil
	}
	if _, err := os.Stat(config.IndexDBPath(dir)); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'codeagent init' first")
	}
	return nil
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
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
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

// newChatModel builds the configured chat client. The concrete type is
// returned because the agent needs its tool-calling methods; everything
// else uses it through port.ChatModel.
func newChatModel(cfg *config.Config) (*llm.OpenAIChat, error) {
	l := cfg.LLM
	switch l.Provider {
	case "groq":
		return llm.NewGroqChat(l.APIKeyEnv, l.Model, l.Temperature)
	case "openai":
		if l.BaseURL != "" {
			return llm.NewOpenAICompatibleChat(l.APIKeyEnv, l.Model, l.BaseURL, l.Temperature)
		}
		return llm.NewOpenAIChat(l.APIKeyEnv, l.Model, l.Temperature)
	case "ollama":
		return llm.NewOllamaChat(l.Model, l.BaseURL, l.Temperature)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", l.Provider)
	}
}

func newScanner(cfg *config.Config) *fs.Scanner {
	return fs.NewScanner(cfg.Scanner.Includes, cfg.Scanner.Excludes, cfg.Scanner.MaxFileSize, nil)
}

func newChunker(cfg *config.Config) (port.Chunker, error) {
	text, err := chunker.NewTextChunker(cfg.Chunker.Size, cfg.Chunker.Overlap, cfg.Chunker.Unit)
	if err != nil {
		return nil, err
	}
	if cfg.Chunker.ASTChunking {
		return chunker.NewCompositeChunker(text), nil
	}
	return text, nil
}

// newQueryService stacks the configured reranker and score floor on
// top of the given retriever.
func newQueryService(rt port.Retriever, cfg *config.Config) *usecase.QueryService {
	var reranker port.DiversityReranker
	if cfg.Retrieve.Diversify {
		reranker = retriever.NewMMRReranker(cfg.Retrieve.MMRLambda, cfg.Retrieve.DedupThreshold)
	}
	return usecase.NewQueryService(rt, reranker, cfg.Retrieve.MinScore)
}

// newToolRegistry assembles the read-only tool set shared by the chat
// agent and the REST API.
func newToolRegistry(ws *security.Workspace, cfg *config.Config, query *usecase.QueryService) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	tools := []tool.Tool{
		tool.NewSemanticSearch(query),
		tool.NewExactSearch(ws, newScanner(cfg)),
		tool.NewDirectoryTree(ws),
		tool.NewFileOutline(ws),
		tool.NewReadFile(ws),
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// registerAgentTools adds the mutating tools that only the interactive
// agent gets. Command execution stays behind the config switch.
func registerAgentTools(reg *tool.Registry, ws *security.Workspace, cfg *config.Config) error {
	policy := security.CommandPolicy{
		Enabled: cfg.Agent.EnableExec,
		Denied:  cfg.Agent.DeniedCommands,
		Timeout: cfg.ExecTimeout(),
	}
	for _, t := range []tool.Tool{tool.NewWriteFile(ws), tool.NewRunCommand(ws, policy)} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// checkRebuild clears the local index when its schema or embedding
// configuration no longer matches. Returns the reason when it cleared.
func checkRebuild(st port.VectorStore, cfg *config.Config) (string, error) {
	bolt, ok := st.(*store.BoltVectorStore)
	if !ok {
		return "", nil
	}
	rebuild, reason, err := bolt.NeedsRebuild(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to check index schema: %w", err)
	}
	if !rebuild {
		return "", nil
	}
	if err := bolt.Clear(); err != nil {
		return "", fmt.Errorf("failed to clear index: %w", err)
	}
	return reason, nil
}

// markBuilt stamps the local index with the configuration it was built
// under. The qdrant backend carries no schema metadata.
func markBuilt(st port.VectorStore, cfg *config.Config) error {
	bolt, ok := st.(*store.BoltVectorStore)
	if !ok {
		return nil
	}
	return bolt.MarkBuilt(cfg)
}
