package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cardsmith configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Workspace is the directory holding the databases, logs, and the
	// watched card source directory.
	Workspace string `yaml:"workspace"`

	// Generation model configuration
	AI AIConfig `yaml:"ai"`

	// Card store configuration
	Store StoreConfig `yaml:"store"`

	// Dashboard configuration
	UI UIConfig `yaml:"ui"`

	// Source directory watcher
	Watch WatchConfig `yaml:"watch"`

	// Compiler limits
	Compile CompileConfig `yaml:"compile"`

	// Logging gate (read directly by internal/logging)
	Log LogConfig `yaml:"log"`
}

// AIConfig configures the generation model used for AI-authored cards.
type AIConfig struct {
	Provider       string `yaml:"provider"` // gemini
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Timeout        string `yaml:"timeout"`
}

// StoreConfig configures the SQLite stores.
type StoreConfig struct {
	// DatabasePath holds persisted card definitions.
	DatabasePath string `yaml:"database_path"`

	// SimilarityPath holds the embedding index for similar-card search.
	SimilarityPath string `yaml:"similarity_path"`
}

// UIConfig configures the dashboard host.
type UIConfig struct {
	Theme string `yaml:"theme"` // dark, light, auto
}

// WatchConfig configures the card source directory watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir is scanned for *.card.go files; writes trigger a save.
	Dir string `yaml:"dir"`

	// Debounce coalesces rapid editor write bursts.
	Debounce string `yaml:"debounce"`
}

// CompileConfig bounds the source validator.
type CompileConfig struct {
	// MaxSourceBytes rejects oversized submissions before parsing.
	MaxSourceBytes int `yaml:"max_source_bytes"`
}

// LogConfig configures file logging.
type LogConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:      "cardsmith",
		Version:   "0.3.0",
		Workspace: ".cardsmith",

		AI: AIConfig{
			Provider:       "gemini",
			Model:          "gemini-2.0-flash",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "60s",
		},

		Store: StoreConfig{
			DatabasePath:   "cards.db",
			SimilarityPath: "similarity.db",
		},

		UI: UIConfig{
			Theme: "auto",
		},

		Watch: WatchConfig{
			Enabled:  false,
			Dir:      "cards",
			Debounce: "300ms",
		},

		Compile: CompileConfig{
			MaxSourceBytes: 64 * 1024,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
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

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.AI.APIKey = key
		if c.AI.Provider == "" {
			c.AI.Provider = "gemini"
		}
	}
	if key := os.Getenv("CARDSMITH_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if ws := os.Getenv("CARDSMITH_WORKSPACE"); ws != "" {
		c.Workspace = ws
	}
	if path := os.Getenv("CARDSMITH_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// DatabasePath returns the card database path anchored to the workspace
// unless configured absolute.
func (c *Config) DatabasePath() string {
	return c.workspacePath(c.Store.DatabasePath)
}

// SimilarityPath returns the similarity index path anchored to the
// workspace unless configured absolute.
func (c *Config) SimilarityPath() string {
	return c.workspacePath(c.Store.SimilarityPath)
}

// WatchDir returns the watched source directory anchored to the workspace
// unless configured absolute.
func (c *Config) WatchDir() string {
	return c.workspacePath(c.Watch.Dir)
}

func (c *Config) workspacePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Workspace, p)
}

// GetAITimeout returns the generation timeout as a duration.
func (c *Config) GetAITimeout() time.Duration {
	d, err := time.ParseDuration(c.AI.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetWatchDebounce returns the watcher debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// ValidProviders lists the supported generation providers.
var ValidProviders = []string{"gemini"}

// ValidThemes lists the supported dashboard themes.
var ValidThemes = []string{"dark", "light", "auto"}

// Validate validates the configuration. The API key is only required for
// generation commands, so it is checked there, not here.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.AI.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid AI provider: %s (valid: %v)", c.AI.Provider, ValidProviders)
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	if c.Compile.MaxSourceBytes <= 0 {
		return fmt.Errorf("compile.max_source_bytes must be positive")
	}
	return nil
}
