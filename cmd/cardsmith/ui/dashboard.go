package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cardsmith/internal/aigen"
	"cardsmith/internal/catalog"
	"cardsmith/internal/logging"
)

// Config wires the dashboard's collaborators. Catalog is required and
// must be rebuilt before the program starts; Generator may be nil, the
// add-card prompt then reports that generation is disabled.
type Config struct {
	Catalog   *catalog.Catalog
	Generator *aigen.Generator
	Theme     string
	Version   string

	// GenerateTimeout bounds one AI card generation started from the
	// grid prompt. Zero means a built-in default.
	GenerateTimeout time.Duration
}

// CardSavedMsg tells the dashboard a card changed outside its own
// update loop (the source file watcher); both pages re-pull the
// catalog.
type CardSavedMsg struct {
	ID string
}

type page int

const (
	pageGrid page = iota
	pageManage
)

// DashboardModel is the root bubbletea model: a header, the active
// page, and a footer with key help.
type DashboardModel struct {
	cfg    Config
	styles Styles

	width  int
	height int
	ready  bool

	page   page
	grid   GridModel
	manage ManageModel
}

// NewDashboard builds the root model from an already rebuilt catalog.
func NewDashboard(cfg Config) DashboardModel {
	styles := NewStyles(ThemeFromName(cfg.Theme))
	return DashboardModel{
		cfg:    cfg,
		styles: styles,
		grid:   NewGridModel(cfg.Catalog, cfg.Generator, styles, cfg.GenerateTimeout),
		manage: NewManageModel(cfg.Catalog, styles),
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		body := max(msg.Height-2, 1)
		m.grid.SetSize(msg.Width, body)
		m.manage.SetSize(msg.Width, body)
		return m, nil

	case CardSavedMsg:
		logging.UI("Card %s saved outside the dashboard, refreshing", msg.ID)
		m.grid.Refresh()
		m.manage.Refresh()
		return m, nil

	case generateDoneMsg:
		// Lands on the grid whichever page is visible; the manage list
		// picks the new card up too.
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		m.manage.Refresh()
		return m, cmd

	case cardDeletedMsg:
		var cmd tea.Cmd
		m.manage, cmd = m.manage.Update(msg)
		m.grid.Refresh()
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.typing() {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "tab":
				if m.page == pageGrid {
					m.page = pageManage
					m.manage.Refresh()
				} else {
					m.page = pageGrid
					m.grid.Refresh()
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.page {
	case pageManage:
		m.manage, cmd = m.manage.Update(msg)
	default:
		m.grid, cmd = m.grid.Update(msg)
	}
	return m, cmd
}

func (m DashboardModel) View() string {
	if !m.ready {
		return "Loading dashboard…"
	}
	var body string
	switch m.page {
	case pageManage:
		body = m.manage.View()
	default:
		body = m.grid.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

// typing reports whether a text input anywhere owns the keyboard, in
// which case page-level keys like q and tab stay out of the way.
func (m DashboardModel) typing() bool {
	if m.page == pageManage {
		return m.manage.typing()
	}
	return m.grid.typing()
}

func (m DashboardModel) renderHeader() string {
	st := m.styles
	name := st.Header.Render(" cardsmith ")

	tabs := []string{"dashboard", "manage"}
	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		if i == int(m.page) {
			rendered[i] = st.Bold.Render(t)
		} else {
			rendered[i] = st.Muted.Render(t)
		}
	}
	left := name + " " + strings.Join(rendered, st.Muted.Render(" / "))

	right := ""
	if m.cfg.Version != "" {
		right = st.Muted.Render("v" + m.cfg.Version)
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m DashboardModel) renderFooter() string {
	var help string
	if m.page == pageGrid {
		help = "←/→ focus · / search · s sort · S direction · [ ] page · g new card · r reload · tab manage · q quit"
	} else {
		help = "↑/↓ select · enter detail · y copy · d delete · tab dashboard · q quit"
	}
	return m.styles.Footer.Render(help)
}
