// Package file provides TOML-backed application configuration.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration, loaded from
// ~/.parley/config.toml with sensible defaults for anything unset.
type Config struct {
	Anthropic AnthropicConfig `toml:"anthropic"`
	Ollama    OllamaConfig    `toml:"ollama"`
	RAG       RAGConfig       `toml:"rag"`
	Chat      ChatConfig      `toml:"chat"`
	Knowledge KnowledgeConfig `toml:"knowledge"`
	Storage   StorageConfig   `toml:"storage"`
}

// AnthropicConfig configures the hosted backend.
type AnthropicConfig struct {
	// APIKey authenticates with the API. The ANTHROPIC_API_KEY
	// environment variable takes precedence over the file value.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the API endpoint.
	BaseURL string `toml:"base_url"`

	// DefaultModel is used when a conversation has no model set.
	DefaultModel string `toml:"default_model"`

	// MaxTokens caps response length.
	MaxTokens int `toml:"max_tokens"`

	// TimeoutSeconds bounds each request. Kept short: cloud turns are
	// interactive.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// OllamaConfig configures the local inference host.
type OllamaConfig struct {
	BaseURL string `toml:"base_url"`

	// TimeoutSeconds bounds each request. On-device inference can be
	// slow, so the default is generous.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// RAGConfig configures the retrieval-augmented endpoint.
type RAGConfig struct {
	BaseURL string `toml:"base_url"`

	// TopK is the retrieval depth for augmented turns.
	TopK int `toml:"top_k"`

	// TimeoutSeconds bounds each request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ChatConfig configures turn handling.
type ChatConfig struct {
	// LocalHistoryLimit is how many prior messages are flattened into
	// prompts for the local backends.
	LocalHistoryLimit int `toml:"local_history_limit"`
}

// KnowledgeConfig configures document ingestion.
type KnowledgeConfig struct {
	// TruncateLength caps ingested content before embedding.
	TruncateLength int `toml:"truncate_length"`

	// EmbeddingDimensions is the placeholder embedding vector size.
	// Changing it invalidates every stored vector.
	EmbeddingDimensions int `toml:"embedding_dimensions"`
}

// StorageConfig configures where data lives on disk.
type StorageConfig struct {
	// DataDir holds the SQLite database (default: ~/.parley/data).
	DataDir string `toml:"data_dir"`

	// UploadsDir holds attachment files (default: ~/.parley/uploads).
	UploadsDir string `toml:"uploads_dir"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Anthropic: AnthropicConfig{
			DefaultModel:   "claude-sonnet-4-20250514",
			MaxTokens:      4096,
			TimeoutSeconds: 60,
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			TimeoutSeconds: 120,
		},
		RAG: RAGConfig{
			BaseURL:        "http://localhost:8080",
			TopK:           5,
			TimeoutSeconds: 120,
		},
		Chat: ChatConfig{
			LocalHistoryLimit: 6,
		},
		Knowledge: KnowledgeConfig{
			TruncateLength:      2000,
			EmbeddingDimensions: 1024,
		},
	}
}

// Load reads the configuration file, applying defaults for missing
// fields. If configDir is empty, defaults to ~/.parley. A missing file
// is not an error; the defaults are returned.
func Load(configDir string) (Config, error) {
	cfg := DefaultConfig()

	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".parley")
	}

	path := filepath.Join(configDir, "config.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	fillDefaults(&cfg)
	applyEnv(&cfg)

	return cfg, nil
}

// Save writes the configuration to configDir/config.toml, creating the
// directory if needed.
func Save(configDir string, cfg Config) error {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".parley")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// fillDefaults repairs zero values left by a partial config file.
func fillDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Anthropic.DefaultModel == "" {
		cfg.Anthropic.DefaultModel = def.Anthropic.DefaultModel
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = def.Anthropic.MaxTokens
	}
	if cfg.Anthropic.TimeoutSeconds == 0 {
		cfg.Anthropic.TimeoutSeconds = def.Anthropic.TimeoutSeconds
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = def.Ollama.BaseURL
	}
	if cfg.Ollama.TimeoutSeconds == 0 {
		cfg.Ollama.TimeoutSeconds = def.Ollama.TimeoutSeconds
	}
	if cfg.RAG.BaseURL == "" {
		cfg.RAG.BaseURL = def.RAG.BaseURL
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.RAG.TimeoutSeconds == 0 {
		cfg.RAG.TimeoutSeconds = def.RAG.TimeoutSeconds
	}
	if cfg.Chat.LocalHistoryLimit == 0 {
		cfg.Chat.LocalHistoryLimit = def.Chat.LocalHistoryLimit
	}
	if cfg.Knowledge.TruncateLength == 0 {
		cfg.Knowledge.TruncateLength = def.Knowledge.TruncateLength
	}
	if cfg.Knowledge.EmbeddingDimensions == 0 {
		cfg.Knowledge.EmbeddingDimensions = def.Knowledge.EmbeddingDimensions
	}
}

// applyEnv overlays environment variables onto the configuration.
func applyEnv(cfg *Config) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Anthropic.APIKey = key
	}
}
