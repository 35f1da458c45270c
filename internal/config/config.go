// Package config loads riposte-search configuration from a YAML file with
// environment variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the riposte-search configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama, local, disabled
	APIKey    string `yaml:"api_key"`
	OllamaURL string `yaml:"ollama_url"`
	CacheSize int    `yaml:"cache_size"`
	Workers   int    `yaml:"workers"` // bulk regeneration concurrency
}

// SearchConfig holds search behavior settings.
type SearchConfig struct {
	SemanticEnabled *bool         `yaml:"semantic_enabled"` // nil = enabled
	DefaultLimit    int           `yaml:"default_limit"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// envVarPattern matches ${VAR} placeholders in config files
var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads configuration from a YAML file. A missing path returns the
// defaults; riposte-search runs fine with zero configuration.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Database.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Database.Path = filepath.Join(home, ".riposte", "library.db")
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 10000
	}
	if c.Embedding.Workers <= 0 {
		c.Embedding.Workers = 4
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.CacheTTL <= 0 {
		c.Search.CacheTTL = 5 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "ollama", "local", "disabled":
	default:
		return fmt.Errorf("embedding.provider must be openai, ollama, local, or disabled, got %q", c.Embedding.Provider)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	if c.Search.DefaultLimit > 100 {
		return fmt.Errorf("search.default_limit must be at most 100, got %d", c.Search.DefaultLimit)
	}

	return nil
}

// SemanticSearchEnabled reports whether hybrid search should attempt the
// semantic leg. Satisfies the searcher's Preferences interface.
func (c *Config) SemanticSearchEnabled() bool {
	if c.Search.SemanticEnabled == nil {
		return c.Embedding.Provider != "disabled"
	}
	return *c.Search.SemanticEnabled
}

// expandEnvVars substitutes ${VAR} references with environment values.
// Unset variables become empty strings.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
