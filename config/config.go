package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"codeagent/internal/domain"
)

// Config holds all configuration for the code assistant.
type Config struct {
	Scanner   ScannerConfig   `yaml:"scanner"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Agent     AgentConfig     `yaml:"agent"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ScannerConfig controls which files an indexing pass considers.
type ScannerConfig struct {
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// ChunkerConfig controls how file text is split into fragments.
type ChunkerConfig struct {
	Size    int    `yaml:"size"`
	Overlap int    `yaml:"overlap"`
	Unit    string `yaml:"unit"` // "chars" or "lines"

	// ASTChunking cuts supported languages along declaration
	// boundaries instead of fixed windows.
	ASTChunking bool `yaml:"ast_chunking"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for the API key
	BaseURL   string `yaml:"base_url"`    // Override for OpenAI-compatible endpoints
	Dimension int    `yaml:"dimension"`   // 0 = derive from model
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"` // Concurrent embedding batches
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend string       `yaml:"backend"` // "local" or "qdrant"
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig configures the remote qdrant backend.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// LLMConfig holds language model provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "groq", "openai", "ollama"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	MinScore       float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
	Diversify      bool    `yaml:"diversify"` // Apply MMR reranking to results
	MMRLambda      float64 `yaml:"mmr_lambda"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
}

// AgentConfig controls the conversational agent.
type AgentConfig struct {
	MaxSteps        int      `yaml:"max_steps"` // Tool rounds per user turn
	EnableExec      bool     `yaml:"enable_exec"`
	ExecTimeoutSecs int      `yaml:"exec_timeout_secs"`
	DeniedCommands  []string `yaml:"denied_commands"`
}

// APIConfig configures the REST server.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scanner: ScannerConfig{
			Includes: []string{
				"**/*.go", "**/*.py", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
				"**/*.java", "**/*.c", "**/*.h", "**/*.cpp", "**/*.cc", "**/*.rs",
				"**/*.rb", "**/*.php", "**/*.cs", "**/*.swift", "**/*.kt",
				"**/*.md", "**/*.txt", "**/*.json", "**/*.yaml", "**/*.yml", "**/*.toml",
				"**/*.sh", "**/*.sql", "**/*.html", "**/*.css",
			},
			Excludes: []string{
				"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**",
				"**/build/**", "**/target/**", "**/__pycache__/**", "**/venv/**",
				"**/.venv/**", "**/.idea/**", "**/.vscode/**", "**/*.min.js",
				"**/.codeagent/**",
			},
			MaxFileSize: 1 << 20,
		},
		Chunker: ChunkerConfig{
			Size:        4000,
			Overlap:     400,
			Unit:        "chars",
			ASTChunking: true,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 0,
			BatchSize: 50,
			Workers:   4,
		},
		Store: StoreConfig{
			Backend: "local",
			Qdrant: QdrantConfig{
				URL:        "http://localhost:6333",
				Collection: "codeagent",
				APIKeyEnv:  "QDRANT_API_KEY",
			},
		},
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "llama-3.3-70b-versatile",
			APIKeyEnv:   "GROQ_API_KEY",
			Temperature: 0.2,
			MaxRetries:  3,
		},
		Retrieve: RetrieveConfig{
			TopK:           5,
			MinScore:       0,
			Diversify:      false,
			MMRLambda:      0.7,
			DedupThreshold: 0.92,
		},
		Agent: AgentConfig{
			MaxSteps:        8,
			EnableExec:      false,
			ExecTimeoutSecs: 30,
			DeniedCommands:  []string{"rm", "sudo", "shutdown", "reboot", "mkfs", "dd"},
		},
		API: APIConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory, looking for
// codeagent.yaml and then .codeagent/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "codeagent.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".codeagent", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks settings that every command depends on.
func (c *Config) Validate() error {
	if c.Chunker.Size <= 0 {
		return domain.NewConfigError("chunker.size", "must be positive")
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return domain.NewConfigError("chunker.overlap", "must be in [0, size)")
	}
	if c.Chunker.Unit != "chars" && c.Chunker.Unit != "lines" {
		return domain.NewConfigError("chunker.unit", "must be \"chars\" or \"lines\"")
	}
	if c.Embedding.BatchSize <= 0 {
		return domain.NewConfigError("embedding.batch_size", "must be positive")
	}
	if c.Store.Backend != "local" && c.Store.Backend != "qdrant" {
		return domain.NewConfigError("store.backend", "must be \"local\" or \"qdrant\"")
	}
	return nil
}

// LLMAPIKey resolves the language model API key from the environment.
// A missing key is a startup failure for commands that need the model.
func (c *Config) LLMAPIKey() (string, error) {
	if c.LLM.Provider == "ollama" {
		return "ollama", nil
	}
	key := os.Getenv(c.LLM.APIKeyEnv)
	if key == "" {
		return "", domain.NewConfigError("llm.api_key_env", "environment variable "+c.LLM.APIKeyEnv+" is not set")
	}
	return key, nil
}

// EmbeddingAPIKey resolves the embedding API key from the environment.
func (c *Config) EmbeddingAPIKey() (string, error) {
	switch c.Embedding.Provider {
	case "ollama", "mock":
		return "ollama", nil
	}
	key := os.Getenv(c.Embedding.APIKeyEnv)
	if key == "" {
		return "", domain.NewConfigError("embedding.api_key_env", "environment variable "+c.Embedding.APIKeyEnv+" is not set")
	}
	return key, nil
}

// ExecTimeout returns the configured command execution timeout.
func (c *Config) ExecTimeout() time.Duration {
	if c.Agent.ExecTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Agent.ExecTimeoutSecs) * time.Second
}

// IndexDBPath returns the path to the local index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".codeagent", "index.db")
}

// EnsureStateDir ensures the .codeagent directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".codeagent"), 0755)
}
