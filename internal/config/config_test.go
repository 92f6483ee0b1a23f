package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "cardsmith" {
		t.Errorf("expected Name=cardsmith, got %s", cfg.Name)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("expected Provider=gemini, got %s", cfg.AI.Provider)
	}
	if cfg.Compile.MaxSourceBytes != 64*1024 {
		t.Errorf("expected MaxSourceBytes=65536, got %d", cfg.Compile.MaxSourceBytes)
	}
	if cfg.Watch.Enabled {
		t.Error("watcher should be disabled by default")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CARDSMITH_API_KEY", "")
	t.Setenv("CARDSMITH_WORKSPACE", "")
	t.Setenv("CARDSMITH_DB", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.AI.APIKey = "test-key"
	cfg.UI.Theme = "dark"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.AI.APIKey != "test-key" {
		t.Errorf("expected APIKey=test-key, got %s", loaded.AI.APIKey)
	}
	if loaded.UI.Theme != "dark" {
		t.Errorf("expected Theme=dark, got %s", loaded.UI.Theme)
	}
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CARDSMITH_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should fall back to defaults, got %v", err)
	}
	if cfg.Name != "cardsmith" {
		t.Errorf("expected defaults, got Name=%s", cfg.Name)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")
	t.Setenv("CARDSMITH_DB", "/tmp/override.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.AI.APIKey != "env-gemini-key" {
		t.Errorf("expected APIKey=env-gemini-key, got %s", cfg.AI.APIKey)
	}
	if cfg.Store.DatabasePath != "/tmp/override.db" {
		t.Errorf("expected DatabasePath=/tmp/override.db, got %s", cfg.Store.DatabasePath)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	cfg.AI.Provider = "invalid-provider"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider")
	}

	cfg = DefaultConfig()
	cfg.UI.Theme = "sepia"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid theme")
	}

	cfg = DefaultConfig()
	cfg.Compile.MaxSourceBytes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero source limit")
	}
}

func TestConfig_WorkspacePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workspace = "/ws"

	if got := cfg.DatabasePath(); got != filepath.Join("/ws", "cards.db") {
		t.Errorf("DatabasePath = %s", got)
	}

	cfg.Store.DatabasePath = "/abs/cards.db"
	if got := cfg.DatabasePath(); got != "/abs/cards.db" {
		t.Errorf("absolute path should pass through, got %s", got)
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetAITimeout() == 0 {
		t.Error("GetAITimeout should return a non-zero duration")
	}
	if cfg.GetWatchDebounce() == 0 {
		t.Error("GetWatchDebounce should return a non-zero duration")
	}

	cfg.AI.Timeout = "garbage"
	if cfg.GetAITimeout() == 0 {
		t.Error("GetAITimeout should fall back on parse failure")
	}
}
