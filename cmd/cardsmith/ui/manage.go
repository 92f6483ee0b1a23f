package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"cardsmith/internal/card"
	"cardsmith/internal/catalog"
	"cardsmith/internal/logging"
)

// clipboardWriteAll is swappable for tests; the real clipboard is not
// available in CI.
var clipboardWriteAll = clipboard.WriteAll

// cardDeletedMsg reports the result of a manage-page delete.
type cardDeletedMsg struct {
	id    string
	title string
	err   error
}

// cardItem adapts a definition for the bubbles list.
type cardItem struct {
	def *card.Definition
}

func (i cardItem) Title() string {
	if i.def.LoadError != "" {
		return i.def.Title + " ⚠"
	}
	return i.def.Title
}

func (i cardItem) Description() string {
	return fmt.Sprintf("%s · %s · w%d · %s",
		i.def.ID, i.def.Tier, i.def.DefaultWidth,
		i.def.UpdatedAt.Format("2006-01-02 15:04"))
}

func (i cardItem) FilterValue() string {
	return i.def.Title + " " + i.def.ID + " " + i.def.Description
}

// ManageModel is the card management page: a filterable list on the
// left, the selected card's detail on the right. The list owns the
// keyboard until enter moves focus to the detail viewport.
type ManageModel struct {
	catalog *catalog.Catalog
	styles  Styles

	width  int
	height int

	list          list.Model
	viewport      viewport.Model
	focusViewport bool

	renderer *glamour.TermRenderer

	selectedID    string
	pendingDelete string
}

// NewManageModel builds the manage page from the catalog's current
// contents.
func NewManageModel(cat *catalog.Catalog, styles Styles) ManageModel {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Cards"
	l.SetShowHelp(false)
	l.Styles.Title = styles.Title

	vp := viewport.New(0, 0)

	m := ManageModel{
		catalog:  cat,
		styles:   styles,
		list:     l,
		viewport: vp,
	}
	m.Refresh()
	return m
}

// Refresh re-pulls every definition, load-error ones included, and
// re-renders the detail pane for the current selection.
func (m *ManageModel) Refresh() {
	defs := m.catalog.ListAll()
	items := make([]list.Item, 0, len(defs))
	for _, def := range defs {
		items = append(items, cardItem{def: def})
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Cards (%d)", len(defs))
	m.syncDetail()
}

// SetSize splits the page 35/65 and reserves one line for key help.
func (m *ManageModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	listWidth := width * 35 / 100
	detailWidth := width - listWidth

	const chromeW = 4 // border + padding columns per pane
	const chromeH = 2 // border rows
	paneHeight := max(height-1-chromeH, 3)

	m.list.SetSize(max(listWidth-chromeW, 10), paneHeight)
	m.viewport.Width = max(detailWidth-chromeW, 10)
	m.viewport.Height = paneHeight

	wrap := max(m.viewport.Width-2, 20)
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap)); err == nil {
		m.renderer = r
	}
	m.syncDetail()
}

func (m ManageModel) Update(msg tea.Msg) (ManageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case cardDeletedMsg:
		if msg.err != nil {
			return m, m.list.NewStatusMessage(m.styles.Error.Render("delete failed: " + msg.err.Error()))
		}
		m.Refresh()
		return m, m.list.NewStatusMessage(m.styles.Muted.Render("Deleted " + msg.title))

	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "enter":
				if !m.focusViewport && m.list.SelectedItem() != nil {
					m.focusViewport = true
					return m, nil
				}
			case "esc":
				if m.focusViewport {
					m.focusViewport = false
					return m, nil
				}
			case "y":
				return m.copySelected()
			case "d":
				return m.deleteSelected()
			case "r":
				m.Refresh()
				return m, nil
			}
		}

		var cmd tea.Cmd
		if m.focusViewport {
			m.viewport, cmd = m.viewport.Update(msg)
		} else {
			m.list, cmd = m.list.Update(msg)
			m.syncDetail()
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ManageModel) View() string {
	if m.width == 0 {
		return ""
	}
	st := m.styles

	listWidth := m.width * 35 / 100
	detailWidth := m.width - listWidth

	listBorder := st.Theme.Border
	detailBorder := st.Theme.Border
	if m.focusViewport {
		detailBorder = st.Theme.Primary
	} else {
		listBorder = st.Theme.Primary
	}

	listPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(listBorder).
		Padding(0, 1).
		Width(listWidth - 4).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(detailBorder).
		Padding(0, 1).
		Width(detailWidth - 4).
		Render(m.viewport.View())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
	help := st.Muted.Render("enter detail · esc back · / filter · y copy · d delete · r reload")
	return lipgloss.JoinVertical(lipgloss.Left, panes, help)
}

// typing reports whether the list filter input owns the keyboard.
func (m ManageModel) typing() bool {
	return m.list.FilterState() == list.Filtering
}

// syncDetail re-renders the detail pane for the current selection. A
// selection change resets scroll position and any pending delete.
func (m *ManageModel) syncDetail() {
	item, ok := m.list.SelectedItem().(cardItem)
	if !ok {
		m.selectedID = ""
		m.pendingDelete = ""
		m.viewport.SetContent(m.styles.Muted.Render("No card selected."))
		return
	}
	if item.def.ID != m.selectedID {
		m.viewport.GotoTop()
		m.pendingDelete = ""
	}
	m.selectedID = item.def.ID
	m.viewport.SetContent(m.renderDetail(item.def))
}

// copySelected puts the card's source (code tier) or its definition
// JSON (declarative tier) on the clipboard.
func (m ManageModel) copySelected() (ManageModel, tea.Cmd) {
	item, ok := m.list.SelectedItem().(cardItem)
	if !ok {
		return m, nil
	}
	text, what := copyPayload(item.def)
	if err := clipboardWriteAll(text); err != nil {
		return m, m.list.NewStatusMessage(m.styles.Error.Render("copy failed: " + err.Error()))
	}
	return m, m.list.NewStatusMessage(m.styles.Muted.Render("Copied " + what))
}

func copyPayload(def *card.Definition) (text, what string) {
	if def.Code != nil && def.Code.SourceCode != "" {
		return def.Code.SourceCode, "source"
	}
	b, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return def.Title, "title"
	}
	return string(b), "definition JSON"
}

// deleteSelected asks for a second d before actually deleting, then
// runs the delete off the update loop.
func (m ManageModel) deleteSelected() (ManageModel, tea.Cmd) {
	item, ok := m.list.SelectedItem().(cardItem)
	if !ok {
		return m, nil
	}
	if m.pendingDelete != item.def.ID {
		m.pendingDelete = item.def.ID
		return m, m.list.NewStatusMessage(
			m.styles.Warning.Render("Press d again to delete " + item.def.Title))
	}
	m.pendingDelete = ""

	cat := m.catalog
	def := item.def
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cardDeletedMsg{id: def.ID, title: def.Title, err: cat.Delete(ctx, def.ID)}
	}
}

func (m ManageModel) renderDetail(def *card.Definition) string {
	st := m.styles
	width := m.viewport.Width

	var b strings.Builder
	b.WriteString(st.Title.Render(def.Title))
	b.WriteString("\n")
	b.WriteString(st.Muted.Render(fmt.Sprintf("%s · tier %s · width %d", def.ID, def.Tier, def.DefaultWidth)))
	b.WriteString("\n")
	b.WriteString(st.Muted.Render("updated " + def.UpdatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n")

	if def.LoadError != "" {
		b.WriteString("\n")
		b.WriteString(renderErrorBody(st, "failed to load", def.LoadError))
		b.WriteString("\n")
	}

	if def.Description != "" {
		b.WriteString("\n")
		b.WriteString(m.renderMarkdown(def.Description))
		b.WriteString("\n")
	}

	switch {
	case def.Declarative != nil:
		p := def.Declarative
		fields := make([]string, len(p.Columns))
		for i, col := range p.Columns {
			fields[i] = col.Field
		}
		b.WriteString("\n")
		b.WriteString(st.Subtitle.Render("Payload"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("layout %s · %d columns (%s) · %d rows",
			p.Layout, len(p.Columns), strings.Join(fields, ", "), len(p.StaticData)))
		if len(p.SearchFields) > 0 {
			b.WriteString("\nsearch: " + strings.Join(p.SearchFields, ", "))
		}
		b.WriteString("\n")
	case def.Code != nil:
		b.WriteString("\n")
		b.WriteString(st.Subtitle.Render("Source"))
		b.WriteString("\n")
		b.WriteString(st.CodeBlock.Width(max(width-2, 20)).Render(clipSource(def.Code.SourceCode, 40)))
		b.WriteString("\n")
	}

	if similar := m.similarLine(def.ID); similar != "" {
		b.WriteString("\n")
		b.WriteString(similar)
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown renders the description through glamour, falling back
// to the raw text on any failure. Glamour can panic on malformed
// input, and a card description must never take the page down.
func (m ManageModel) renderMarkdown(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logging.UIWarn("Markdown render panicked: %v", r)
			out = text
		}
	}()
	if m.renderer == nil {
		return text
	}
	rendered, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// similarLine names the nearest stored cards, or "" when the
// similarity index has nothing to offer.
func (m ManageModel) similarLine(id string) string {
	neighbors := m.catalog.Similar(id, 3)
	if len(neighbors) == 0 {
		return ""
	}
	titles := make(map[string]string)
	for _, def := range m.catalog.ListAll() {
		titles[def.ID] = def.Title
	}
	parts := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		title := titles[n.CardID]
		if title == "" {
			title = n.CardID
		}
		parts = append(parts, title)
	}
	return m.styles.Muted.Render("Similar: " + strings.Join(parts, " · "))
}

func clipSource(src string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	clipped := append([]string{}, lines[:maxLines]...)
	clipped = append(clipped, fmt.Sprintf("… %d more lines", len(lines)-maxLines))
	return strings.Join(clipped, "\n")
}
