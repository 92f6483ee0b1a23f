package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardsmith/internal/scope"
)

// scopeCmd prints the sandbox contract card authors write against
var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Show the names and rules available to card source",
	Long: `Prints the sandbox surface: every helper a code card may call, plus
the dialect rules the validator enforces. This is the complete contract;
card source cannot reach anything else in the process.`,
	RunE: runScope,
}

func runScope(cmd *cobra.Command, args []string) error {
	surface := scope.V1()

	fmt.Printf("Card scope surface v%d (%d names)\n", surface.Version(), len(surface.Names()))
	fmt.Println()
	for _, name := range surface.Names() {
		fmt.Printf("  %s\n", name)
	}

	fmt.Println()
	fmt.Println("Dialect rules:")
	fmt.Println("  - exactly one exported function: func Render(c *Card) (string, error)")
	fmt.Println("  - unexported helper functions are allowed")
	fmt.Println("  - no import statements; the surface above is bound automatically")
	fmt.Println("  - no goroutines, channels or select")
	fmt.Println("  - language builtins (len, append, make, ...) work as usual")
	fmt.Println()
	fmt.Println("Render context:")
	fmt.Println("  c.Title() string, c.Width() int, c.Rows() []Row, c.Arg(name) any")
	fmt.Println("  row accessors: r.Str(f), r.Num(f), r.Int(f), r.Has(f)")
	return nil
}
