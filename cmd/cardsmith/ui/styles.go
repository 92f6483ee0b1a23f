// Package ui implements the dashboard host: a bubbletea program with a
// grid page that mounts every registered card and a manage page for
// browsing, copying and deleting definitions. All card output is plain
// text by the time it reaches this package; ui adds chrome, never
// evaluates card logic.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f6f6f8")
	LightForeground = lipgloss.Color("#1a1f36")
	LightPrimary    = lipgloss.Color("#4c5fd5") // Indigo
	LightAccent     = lipgloss.Color("#4db6ac") // Teal
	LightSecondary  = lipgloss.Color("#e3e5ee")
	LightMuted      = lipgloss.Color("#8a90a5")
	LightBorder     = lipgloss.Color("#dcdee8")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#121420")
	DarkForeground = lipgloss.Color("#ececf1")
	DarkPrimary    = lipgloss.Color("#7c8aff") // Indigo, lifted for contrast
	DarkAccent     = lipgloss.Color("#4db6ac") // Teal
	DarkSecondary  = lipgloss.Color("#1c2030")
	DarkMuted      = lipgloss.Color("#596079")
	DarkBorder     = lipgloss.Color("#2a2f45")
	DarkCard       = lipgloss.Color("#181c2c")

	// Semantic Colors (same in both modes, matching the scope palette so
	// card output blends with host chrome)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

// badgePalette maps the badge color names a declarative column may use to
// terminal colors. Same names and values as the scope builtins.
var badgePalette = map[string]lipgloss.Color{
	"green":  lipgloss.Color("#8BC34A"),
	"yellow": lipgloss.Color("#FFC107"),
	"red":    lipgloss.Color("#e53935"),
	"blue":   lipgloss.Color("#2196F3"),
	"gray":   lipgloss.Color("#9e9e9e"),
	"purple": lipgloss.Color("#9c27b0"),
	"orange": lipgloss.Color("#ff8a65"),
	"teal":   lipgloss.Color("#4db6ac"),
}

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeFromName resolves a configured theme name. "auto" (and anything
// unrecognized) falls back to terminal detection.
func ThemeFromName(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}
	return DetectTheme()
}

// DetectTheme auto-detects the terminal background, defaulting to dark:
// dashboards overwhelmingly run in dark terminals.
func DetectTheme() Theme {
	// COLORFGBG is "foreground;background"; ANSI background indices 0-6
	// and 8 indicate a dark terminal.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
				return LightTheme()
			}
		}
	}

	if os.Getenv("CARDSMITH_LIGHT_MODE") == "1" {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Card slots
	Card        lipgloss.Style
	CardFocused lipgloss.Style
	CardError   lipgloss.Style
	CardTitle   lipgloss.Style

	// Table
	TableHeader lipgloss.Style

	// Stats
	StatValue lipgloss.Style
	StatLabel lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Code
	CodeBlock lipgloss.Style

	// Components
	Divider lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		// Layout styles
		App: lipgloss.NewStyle().
			Background(theme.Background).
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		// Text styles
		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		// Card slot styles
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		CardFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		CardError: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Destructive).
			Foreground(theme.Muted).
			Padding(0, 1),

		CardTitle: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		// Table styles
		TableHeader: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		// Stat styles
		StatValue: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		StatLabel: lipgloss.NewStyle().
			Foreground(theme.Muted),

		// Status styles
		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		// Code styles
		CodeBlock: lipgloss.NewStyle().
			Background(theme.Card).
			Foreground(theme.Foreground).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		// Component styles
		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles with the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderBadge renders a badge cell with its configured color name, gray
// for unknown names.
func (s Styles) RenderBadge(text, color string) string {
	c, ok := badgePalette[color]
	if !ok {
		c = badgePalette["gray"]
	}
	return s.Badge.Background(c).Render(text)
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
