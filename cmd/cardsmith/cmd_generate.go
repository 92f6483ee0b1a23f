package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardsmith/internal/card"
)

var (
	generateTier int
	generateSave bool
)

// generateCmd generates a card definition from a natural-language prompt
var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a card from a natural-language prompt",
	Long: `Asks the configured model for a card matching the prompt and validates
the reply against the card contract before anything else touches it.

Tier 1 (default) produces a declarative card: columns, rows, layout.
Tier 2 produces a code card: a Go source body written against the
sandbox scope, compiled on save like any hand-written card.

By default the card is printed as JSON for review. With --save it goes
through the full save pipeline and lands on the dashboard.

Examples:
  cardsmith generate "service health overview with status badges"
  cardsmith generate --tier 2 --save "uptime counter per region"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateTier != 1 && generateTier != 2 {
		return fmt.Errorf("invalid tier %d (valid: 1, 2)", generateTier)
	}

	gen, err := newGenerator()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAITimeout())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	prompt := strings.Join(args, " ")
	logger.Info("Generating card", zap.Int("tier", generateTier), zap.String("prompt", prompt))

	var def *card.Definition
	switch generateTier {
	case 1:
		result, err := gen.GenerateTier1(ctx, prompt)
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		def = result.Definition()
	case 2:
		result, err := gen.GenerateTier2(ctx, prompt)
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		def = result.Definition()
	}

	if !generateSave {
		out, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render definition: %w", err)
		}
		fmt.Println(string(out))
		fmt.Fprintln(os.Stderr, "\n(re-run with --save to add the card to the dashboard)")
		return nil
	}

	cat, cleanup, err := openCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	saved, err := cat.Save(ctx, def)
	if err != nil {
		return fmt.Errorf("failed to save generated card: %w", err)
	}

	fmt.Printf("Saved card %s (%s, tier %s)\n", saved.ID, saved.Title, saved.Tier)
	return nil
}
