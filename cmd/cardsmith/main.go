package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cardsmith/internal/aigen"
	"cardsmith/internal/catalog"
	"cardsmith/internal/config"
	"cardsmith/internal/logging"
	"cardsmith/internal/store"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	workspace  string
	configPath string

	// Loaded config, available to every RunE after PersistentPreRunE.
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cardsmith",
	Short: "cardsmith - a terminal dashboard built from runtime-defined cards",
	Long: `cardsmith renders a dashboard of cards that are defined at runtime,
not compiled into the binary.

Declarative cards (tier 1) are pure configuration: columns, rows, layout.
Code cards (tier 2) carry a small Go source body that is validated,
scope-checked and executed inside a sandboxed interpreter. A broken card
fails alone; the rest of the dashboard keeps rendering.

Run without arguments to launch the dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		// File logging is safe for every mode: it never writes to the
		// terminal the dashboard draws on.
		if err := logging.Initialize(cfg.Workspace); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}
		if verbose {
			logging.EnableDebug()
		}
		if err := logging.InitAudit(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit logging disabled: %v\n", err)
		}

		// Skip the stderr logger for the dashboard (the TUI owns the terminal)
		if cmd.Use == "cardsmith" || cmd.Use == "dashboard" {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the dashboard
		return runDashboard(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: .cardsmith)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/config.yaml)")

	// Generate flags
	generateCmd.Flags().IntVar(&generateTier, "tier", 1, "Card tier to generate (1 declarative, 2 code)")
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "Save the generated card instead of printing it")

	// Cards subcommands
	cardsCmd.AddCommand(cardsListCmd)
	cardsCmd.AddCommand(cardsShowCmd)
	cardsCmd.AddCommand(cardsDeleteCmd)

	// Add commands to root
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file, applies flag overrides and
// validates the result. Flags win over file and environment values.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		ws := workspace
		if ws == "" {
			ws = config.DefaultConfig().Workspace
		}
		path = filepath.Join(ws, "config.yaml")
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if workspace != "" {
		c.Workspace = workspace
	}
	if apiKey != "" {
		c.AI.APIKey = apiKey
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// openCatalog builds the store-backed catalog. The similarity index and
// the embedder are optional collaborators: failures there degrade to "no
// similar cards" instead of refusing to start. The caller owns cleanup.
func openCatalog() (*catalog.Catalog, func(), error) {
	cs, err := store.NewCardStore(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open card store: %w", err)
	}

	var sims *store.SimilarityStore
	if path := cfg.SimilarityPath(); path != "" {
		sims, err = store.NewSimilarityStore(path)
		if err != nil {
			logging.BootWarn("Similarity index unavailable: %v", err)
			sims = nil
		}
	}

	var embedder catalog.Embedder
	if cfg.AI.APIKey != "" {
		client, err := aigen.NewGeminiClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
		if err != nil {
			logging.BootWarn("Embedding client unavailable: %v", err)
		} else {
			embedder = client
		}
	}

	cat, err := catalog.New(catalog.Config{
		Store:          cs,
		Similarity:     sims,
		Embedder:       embedder,
		MaxSourceBytes: cfg.Compile.MaxSourceBytes,
	})
	if err != nil {
		if sims != nil {
			_ = sims.Close()
		}
		_ = cs.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if sims != nil {
			_ = sims.Close()
		}
		_ = cs.Close()
	}
	return cat, cleanup, nil
}

// newGenerator builds the AI generator, or fails with a pointer at the
// key flag when no key is configured.
func newGenerator() (*aigen.Generator, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("no API key configured (set --api-key or GEMINI_API_KEY)")
	}
	client, err := aigen.NewGeminiClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}
	return aigen.NewGenerator(client), nil
}
