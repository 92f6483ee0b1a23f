package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cardsmith/cmd/cardsmith/ui"
	"cardsmith/internal/aigen"
	"cardsmith/internal/logging"
	"cardsmith/internal/watch"
)

// dashboardCmd launches the interactive dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the card dashboard",
	Long: `Opens the full-screen dashboard with every saved card mounted on the
grid. Declarative cards support live search (/), sort cycling (s) and
paging ([ and ]); broken code cards render an error block in their own
slot without taking the rest of the grid down.

Tab switches to the manage page: browse definitions, copy card source,
delete cards, and see similar cards from the embedding index.`,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cat, cleanup, err := openCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cat.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("failed to rebuild card registry: %w", err)
	}

	// Generation is optional on the dashboard; without a key the add-card
	// prompt reports that instead of failing at startup.
	var generator *aigen.Generator
	if cfg.AI.APIKey != "" {
		if g, err := newGenerator(); err == nil {
			generator = g
		} else {
			logging.BootWarn("Card generation disabled: %v", err)
		}
	}

	model := ui.NewDashboard(ui.Config{
		Catalog:         cat,
		Generator:       generator,
		Theme:           cfg.UI.Theme,
		Version:         cfg.Version,
		GenerateTimeout: cfg.GetAITimeout(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if cfg.Watch.Enabled {
		w, err := watch.New(cat, cfg.WatchDir(), cfg.GetWatchDebounce(), func(id string) {
			p.Send(ui.CardSavedMsg{ID: id})
		})
		if err != nil {
			return fmt.Errorf("failed to create source watcher: %w", err)
		}
		if err := w.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start source watcher: %w", err)
		}
		defer w.Stop()
	}

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
