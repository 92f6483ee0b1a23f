package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAPIKeyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CARDSMITH_API_KEY", "")
	t.Setenv("CARDSMITH_WORKSPACE", "")
	t.Setenv("CARDSMITH_DB", "")
}

func TestEnvOverrides_APIKey(t *testing.T) {
	t.Run("GEMINI_API_KEY sets key and provider if empty", func(t *testing.T) {
		clearAPIKeyEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.AI.APIKey)
		assert.Equal(t, "gemini", cfg.AI.Provider)
	})

	t.Run("GEMINI_API_KEY keeps a configured provider", func(t *testing.T) {
		clearAPIKeyEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := &Config{AI: AIConfig{Provider: "custom"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.AI.APIKey)
		assert.Equal(t, "custom", cfg.AI.Provider)
	})

	t.Run("CARDSMITH_API_KEY wins over GEMINI_API_KEY", func(t *testing.T) {
		clearAPIKeyEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")
		t.Setenv("CARDSMITH_API_KEY", "own-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "own-key", cfg.AI.APIKey)
	})

	t.Run("empty env leaves config untouched", func(t *testing.T) {
		clearAPIKeyEnv(t)

		cfg := &Config{AI: AIConfig{APIKey: "from-file"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-file", cfg.AI.APIKey)
	})
}

func TestEnvOverrides_Paths(t *testing.T) {
	t.Run("CARDSMITH_WORKSPACE", func(t *testing.T) {
		clearAPIKeyEnv(t)
		t.Setenv("CARDSMITH_WORKSPACE", "/srv/cards")

		cfg := &Config{Workspace: ".cardsmith"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/srv/cards", cfg.Workspace)
	})

	t.Run("CARDSMITH_DB", func(t *testing.T) {
		clearAPIKeyEnv(t)
		t.Setenv("CARDSMITH_DB", "/tmp/test-cards.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/test-cards.db", cfg.Store.DatabasePath)
		// Absolute paths are not re-anchored to the workspace.
		cfg.Workspace = "/elsewhere"
		assert.Equal(t, "/tmp/test-cards.db", cfg.DatabasePath())
	})
}

func TestLoadAppliesEnvWithoutFile(t *testing.T) {
	clearAPIKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, ".cardsmith", cfg.Workspace)
}
