package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardsmith/internal/card"
	"cardsmith/internal/compiler"
)

// compileCmd validates a card source file without saving anything
var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Check a card source file without saving it",
	Long: `Runs a card source file through the same validator and transpiler the
save pipeline uses, then discards the result. Useful while drafting a
card in an editor before pointing the watcher or the dashboard at it.

Example:
  cardsmith compile cards/uptime.card.go`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	logger.Debug("Compiling card source", zap.String("file", path), zap.Int("bytes", len(data)))

	comp := compiler.New()
	if cfg.Compile.MaxSourceBytes > 0 {
		comp.MaxSourceBytes = cfg.Compile.MaxSourceBytes
	}

	artifact, err := comp.Compile(string(data))
	if err != nil {
		var cerr *card.CompileError
		if errors.As(err, &cerr) {
			fmt.Printf("%s: rejected with %d finding(s)\n", path, len(cerr.Findings))
			for _, f := range cerr.Findings {
				fmt.Printf("  %s\n", f)
			}
			return fmt.Errorf("source rejected")
		}
		return err
	}

	fmt.Printf("%s compiles clean\n", path)
	fmt.Printf("  entry:         %s\n", artifact.Entry)
	fmt.Printf("  scope version: v%d\n", artifact.ScopeVersion)
	fmt.Printf("  source hash:   %s\n", artifact.SourceHash)
	return nil
}
