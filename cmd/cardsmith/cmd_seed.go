package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardsmith/internal/card"
)

// seedCmd populates the store with example cards
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add example cards to an empty dashboard",
	Long: `Saves a small set of example cards through the normal save pipeline:
two declarative cards and one code card. Cards whose title already
exists are skipped, so seeding twice does not duplicate anything.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cat, cleanup, err := openCatalog()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cat.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}

	existing := make(map[string]bool)
	for _, def := range cat.ListAll() {
		existing[def.Title] = true
	}

	seeded := 0
	for _, def := range seedCards() {
		if existing[def.Title] {
			fmt.Printf("Skipping %q (already saved)\n", def.Title)
			continue
		}
		saved, err := cat.Save(cmd.Context(), def)
		if err != nil {
			return fmt.Errorf("failed to seed %q: %w", def.Title, err)
		}
		fmt.Printf("Saved %s (%s)\n", saved.ID, saved.Title)
		seeded++
	}

	fmt.Printf("\n%d card(s) seeded. Run 'cardsmith' to see them.\n", seeded)
	return nil
}

// seedCards returns the example definitions. IDs are left empty so the
// save pipeline assigns fresh ones.
func seedCards() []*card.Definition {
	return []*card.Definition{
		{
			Title:        "Service Health",
			Description:  "Uptime and status for the core services.",
			Tier:         card.TierDeclarative,
			DefaultWidth: 8,
			Declarative: &card.DeclarativePayload{
				DataSource: card.DataSourceStatic,
				Layout:     card.LayoutList,
				Columns: []card.Column{
					{Field: "service", Label: "Service"},
					{Field: "uptime", Label: "Uptime %", Format: "number"},
					{Field: "status", Label: "Status", Format: "badge", BadgeColors: map[string]string{
						"up":       "green",
						"degraded": "yellow",
						"down":     "red",
					}},
				},
				SearchFields: []string{"service", "status"},
				StaticData: []card.Row{
					{"service": "api-gateway", "uptime": 99.98, "status": "up"},
					{"service": "auth", "uptime": 99.95, "status": "up"},
					{"service": "billing", "uptime": 98.10, "status": "degraded"},
					{"service": "search", "uptime": 99.99, "status": "up"},
					{"service": "export", "uptime": 91.40, "status": "down"},
				},
			},
		},
		{
			Title:        "Monthly Revenue",
			Description:  "Revenue per region with totals and averages on top.",
			Tier:         card.TierDeclarative,
			DefaultWidth: 6,
			Declarative: &card.DeclarativePayload{
				DataSource: card.DataSourceStatic,
				Layout:     card.LayoutStatsAndList,
				Columns: []card.Column{
					{Field: "region", Label: "Region"},
					{Field: "revenue", Label: "Revenue", Format: "number"},
					{Field: "closed", Label: "Closed", Format: "date"},
				},
				DefaultLimit: 4,
				StaticData: []card.Row{
					{"region": "EMEA", "revenue": 412000.0, "closed": "2026-07-31"},
					{"region": "Americas", "revenue": 688500.0, "closed": "2026-07-31"},
					{"region": "APAC", "revenue": 254300.0, "closed": "2026-07-31"},
					{"region": "LATAM", "revenue": 98200.0, "closed": "2026-07-31"},
				},
			},
		},
		{
			Title:        "Deployment Summary",
			Description:  "A code card: counts deployments by status with badges.",
			Tier:         card.TierCode,
			DefaultWidth: 4,
			Code: &card.CodePayload{
				SourceCode: `func Render(c *Card) (string, error) {
	byStatus := CountBy(c.Rows(), "status")
	lines := []string{Bold(c.Title())}
	for _, status := range []string{"success", "failed", "rolled-back"} {
		n := byStatus[status]
		if n == 0 {
			continue
		}
		lines = append(lines, Sprintf("%s %d", Badge(status, statusColor(status)), n))
	}
	if len(lines) == 1 {
		lines = append(lines, Faint("no deployments yet"))
	}
	return Merge(lines...), nil
}

func statusColor(status string) string {
	switch status {
	case "success":
		return "green"
	case "failed":
		return "red"
	}
	return "yellow"
}`,
			},
		},
	}
}
