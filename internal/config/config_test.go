package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 5*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, cfg.Database.Path, "library.db")
	assert.True(t, cfg.SemanticSearchEnabled())
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/test.db
embedding:
  provider: local
  workers: 8
search:
  default_limit: 50
  cache_ttl: 1m
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 8, cfg.Embedding.Workers)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_RIPOSTE_KEY", "sk-secret")

	path := writeConfig(t, `
embedding:
  provider: openai
  api_key: ${TEST_RIPOSTE_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.Embedding.APIKey)
}

func TestLoad_InvalidProvider(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: bogus
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: loud
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestSemanticSearchEnabled(t *testing.T) {
	off := false
	on := true

	cfg := Config{}
	cfg.ApplyDefaults()
	assert.True(t, cfg.SemanticSearchEnabled())

	cfg.Search.SemanticEnabled = &off
	assert.False(t, cfg.SemanticSearchEnabled())

	cfg.Search.SemanticEnabled = &on
	cfg.Embedding.Provider = "disabled"
	assert.True(t, cfg.SemanticSearchEnabled())

	// Disabled provider implies no semantic leg unless explicitly forced
	cfg.Search.SemanticEnabled = nil
	assert.False(t, cfg.SemanticSearchEnabled())
}
