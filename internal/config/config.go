// Package config loads and validates the game master configuration from YAML
// with environment-variable overrides for secrets and paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all knowledge-core configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Content store configuration
	Store StoreConfig `yaml:"store"`

	// Embedding provider configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval tuning
	RAG RAGConfig `yaml:"rag"`

	// Prompt assembly and token budgeting
	Prompt PromptConfig `yaml:"prompt"`

	// AI client configuration
	AI AIConfig `yaml:"ai"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the embedded content store.
type StoreConfig struct {
	// Path to the SQLite database file, or ":memory:" for tests.
	Path string `yaml:"path"`
	// PoolSize caps open connections. The pure-Go driver serializes writes,
	// so 1 is the safe default there.
	PoolSize int `yaml:"pool_size"`
	// BusyTimeoutMS must stay at or above 5000 so the indexing job and
	// serving reads can coexist.
	BusyTimeoutMS  int    `yaml:"busy_timeout_ms"`
	Synchronous    string `yaml:"synchronous"`
	RecycleSeconds int    `yaml:"recycle_seconds"`
	// VectorExtension enables the sqlite-vec fast path when the binary was
	// built with it. The linear-scan fallback is always available.
	VectorExtension bool `yaml:"vector_extension"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // ollama, openai, genai, hash
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	BatchSize int    `yaml:"batch_size"`
	Timeout   string `yaml:"timeout"`
}

// RAGConfig tunes retrieval behavior.
type RAGConfig struct {
	Enabled             bool    `yaml:"enabled"`
	MaxResultsPerSource int     `yaml:"max_results_per_source"`
	MaxTotalResults     int     `yaml:"max_total_results"`
	ScoreThreshold      float64 `yaml:"score_threshold"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	KeywordBoostWeight  float64 `yaml:"keyword_boost_weight"`
	KeywordBoostCap     float64 `yaml:"keyword_boost_cap"`
	DedupTokenWindow    int     `yaml:"dedup_token_window"`
	DedupJaccard        float64 `yaml:"dedup_jaccard"`
}

// PromptConfig tunes prompt assembly.
type PromptConfig struct {
	TokenBudget        int `yaml:"token_budget"`
	TokensPerMessage   int `yaml:"tokens_per_message"`
	RecentHistorySize  int `yaml:"recent_history_size"`
	// FallbackMaxMessages bounds older history by count when the tokenizer
	// is unavailable and token counting returns zero.
	FallbackMaxMessages int `yaml:"fallback_max_messages"`
}

// AIConfig configures the AI client collaborator.
type AIConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
	RetryDelay  string  `yaml:"retry_delay"`
	Timeout     string  `yaml:"timeout"`
}

// LoggingConfig configures the category loggers.
type LoggingConfig struct {
	Level      string            `yaml:"level"`
	Dir        string            `yaml:"dir"`
	Categories map[string]string `yaml:"categories"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ai-gamemaster",
		Version: "1.0.0",

		Store: StoreConfig{
			Path:            "data/content.db",
			PoolSize:        1,
			BusyTimeoutMS:   5000,
			Synchronous:     "NORMAL",
			RecycleSeconds:  3600,
			VectorExtension: true,
		},

		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-MiniLM-L6-v2",
			Dimension: 384,
			Endpoint:  "http://localhost:11434",
			BatchSize: 32,
			Timeout:   "60s",
		},

		RAG: RAGConfig{
			Enabled:             true,
			MaxResultsPerSource: 2,
			MaxTotalResults:     5,
			ScoreThreshold:      0.2,
			SimilarityThreshold: 0.3,
			KeywordBoostWeight:  0.5,
			KeywordBoostCap:     2.0,
			DedupTokenWindow:    15,
			DedupJaccard:        0.7,
		},

		Prompt: PromptConfig{
			TokenBudget:         128000,
			TokensPerMessage:    4,
			RecentHistorySize:   4,
			FallbackMaxMessages: 40,
		},

		AI: AIConfig{
			Provider:    "openai",
			BaseURL:     "http://localhost:5001/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxRetries:  3,
			RetryDelay:  "5s",
			Timeout:     "60s",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.AI.APIKey = key
		if c.Embedding.Provider == "openai" {
			c.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Embedding.Provider == "genai" {
			c.Embedding.APIKey = key
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if c.Embedding.Provider == "ollama" {
			c.Embedding.Endpoint = host
		}
	}
	if path := os.Getenv("GM_CONTENT_DB"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("GM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("GM_AI_BASE_URL"); url != "" {
		c.AI.BaseURL = url
	}
}

// ValidEmbeddingProviders lists the supported embedding provider ids.
var ValidEmbeddingProviders = []string{"ollama", "openai", "genai", "hash"}

// Validate checks cross-field constraints that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.BusyTimeoutMS < 5000 {
		return fmt.Errorf("store.busy_timeout_ms must be at least 5000, got %d", c.Store.BusyTimeoutMS)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if !isValidProvider(c.Embedding.Provider) {
		return fmt.Errorf("embedding.provider %q is not one of %v", c.Embedding.Provider, ValidEmbeddingProviders)
	}
	if c.RAG.MaxTotalResults <= 0 {
		return fmt.Errorf("rag.max_total_results must be positive, got %d", c.RAG.MaxTotalResults)
	}
	if c.RAG.DedupJaccard <= 0 || c.RAG.DedupJaccard > 1 {
		return fmt.Errorf("rag.dedup_jaccard must be in (0,1], got %v", c.RAG.DedupJaccard)
	}
	if c.Prompt.TokenBudget <= 0 {
		return fmt.Errorf("prompt.token_budget must be positive, got %d", c.Prompt.TokenBudget)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must not be negative, got %d", c.AI.MaxRetries)
	}
	return nil
}

func isValidProvider(provider string) bool {
	for _, p := range ValidEmbeddingProviders {
		if provider == p {
			return true
		}
	}
	return false
}

// GetEmbeddingTimeout returns the embedding request timeout as a duration.
func (c *Config) GetEmbeddingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Embedding.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetAITimeout returns the AI request timeout as a duration.
func (c *Config) GetAITimeout() time.Duration {
	d, err := time.ParseDuration(c.AI.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetAIRetryDelay returns the base delay between AI retries.
func (c *Config) GetAIRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.AI.RetryDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
