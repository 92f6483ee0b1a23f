package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cardsmith/internal/aigen"
	"cardsmith/internal/card"
	"cardsmith/internal/catalog"
	"cardsmith/internal/logging"
	"cardsmith/internal/render"
	"cardsmith/internal/scope"
)

// gridUnits is the row capacity of the dashboard grid; card widths are
// spans on this scale.
const gridUnits = 12

// generateDoneMsg reports the result of an AI card request started from
// the grid's prompt.
type generateDoneMsg struct {
	def *card.Definition
	err error
}

// gridMount is one card slot on the grid: the definition snapshot, the
// registered entry (nil when the definition failed to load) and the
// interactive query state for declarative cards.
type gridMount struct {
	def    *card.Definition
	entry  *catalog.Entry
	query  render.Query
	search textinput.Model
}

func (g *gridMount) span() int {
	if g.entry != nil {
		return g.entry.Width()
	}
	if card.ValidWidth(g.def.DefaultWidth) {
		return g.def.DefaultWidth
	}
	return card.DefaultWidth
}

// GridModel is the dashboard page: every registered card mounted on a
// 12-unit row grid. One slot holds focus; search, sort and paging keys
// act on it. Card failures stay inside their slot.
type GridModel struct {
	catalog   *catalog.Catalog
	generator *aigen.Generator
	styles    Styles
	cache     *RenderCache

	width  int
	height int

	viewport viewport.Model
	mounts   []*gridMount
	focused  int

	prompt          textinput.Model
	prompting       bool
	generating      bool
	generateTimeout time.Duration

	status string
}

// NewGridModel builds the grid page and mounts whatever the catalog
// currently has registered. generator may be nil; the add-card prompt
// then reports that generation is disabled.
func NewGridModel(cat *catalog.Catalog, generator *aigen.Generator, styles Styles, generateTimeout time.Duration) GridModel {
	prompt := textinput.New()
	prompt.Placeholder = "describe the card to add..."
	prompt.CharLimit = 500

	m := GridModel{
		catalog:         cat,
		generator:       generator,
		styles:          styles,
		cache:           NewRenderCache(256),
		viewport:        viewport.New(0, 0),
		prompt:          prompt,
		generateTimeout: generateTimeout,
	}
	m.Refresh()
	return m
}

// Refresh re-pulls the catalog and rebuilds the mount list, keeping
// query state and focus for cards that survive the rebuild. Definitions
// with a stored load error keep their slot and show the failure; ids
// the registry cannot mount for any other reason are skipped.
func (m *GridModel) Refresh() {
	prev := make(map[string]*gridMount, len(m.mounts))
	for _, mnt := range m.mounts {
		prev[mnt.def.ID] = mnt
	}
	var focusID string
	if cur := m.focusedMount(); cur != nil {
		focusID = cur.def.ID
	}

	defs := m.catalog.ListAll()
	mounts := make([]*gridMount, 0, len(defs))
	for _, def := range defs {
		entry, err := m.catalog.Lookup(def.ID)
		if err != nil && def.LoadError == "" {
			logging.UIWarn("Skipping unmountable card %s: %v", def.ID, err)
			continue
		}

		mnt := &gridMount{def: def, entry: entry}
		mnt.query = render.Query{Page: 1}
		if def.Declarative != nil {
			mnt.query.Limit = def.Declarative.DefaultLimit
		}
		mnt.search = textinput.New()
		mnt.search.Placeholder = "search..."
		mnt.search.CharLimit = 100
		mnt.search.Width = 30
		if old, ok := prev[def.ID]; ok {
			mnt.query = old.query
			mnt.search = old.search
		}
		mounts = append(mounts, mnt)
	}

	m.mounts = mounts
	m.focused = 0
	for i, mnt := range mounts {
		if mnt.def.ID == focusID {
			m.focused = i
			break
		}
	}
	m.cache.Clear()
	m.syncViewport()
}

// SetSize resizes the page; one line is reserved for the status strip.
func (m *GridModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-1, 1)
	m.prompt.Width = max(width-16, 20)
	m.syncViewport()
}

func (m GridModel) Update(msg tea.Msg) (GridModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case generateDoneMsg:
		m.generating = false
		if msg.err != nil {
			m.status = m.styles.Error.Render("generate failed: " + msg.err.Error())
		} else {
			m.Refresh()
			m.focusCard(msg.def.ID)
			m.status = m.styles.Success.Render("Added " + msg.def.Title)
		}
		m.syncViewport()
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		if mnt := m.focusedMount(); mnt != nil && mnt.search.Focused() {
			return m.updateSearch(mnt, msg)
		}

		switch msg.String() {
		case "left", "h":
			m.moveFocus(-1)
		case "right", "l":
			m.moveFocus(1)
		case "/":
			m.startSearch()
		case "s":
			m.cycleSort()
		case "S":
			m.toggleSortDir()
		case "[":
			m.movePage(-1)
		case "]":
			m.movePage(1)
		case "g":
			if m.generator == nil {
				m.status = m.styles.Warning.Render("card generation disabled (no API key)")
			} else if !m.generating {
				m.prompting = true
				m.status = ""
				m.prompt.Focus()
			}
		case "r":
			m.Refresh()
			m.status = m.styles.Muted.Render("refreshed")
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.syncViewport()
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m GridModel) updatePrompt(msg tea.KeyMsg) (GridModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.prompt.Blur()
		m.prompt.SetValue("")
	case tea.KeyEnter:
		text := strings.TrimSpace(m.prompt.Value())
		m.prompting = false
		m.prompt.Blur()
		m.prompt.SetValue("")
		if text != "" {
			m.generating = true
			return m, m.generateCmd(text)
		}
	default:
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m GridModel) updateSearch(mnt *gridMount, msg tea.KeyMsg) (GridModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		mnt.search.Blur()
		mnt.search.SetValue("")
		mnt.query.Search = ""
		mnt.query.Page = 1
	case tea.KeyEnter:
		mnt.search.Blur()
	default:
		var cmd tea.Cmd
		mnt.search, cmd = mnt.search.Update(msg)
		mnt.query.Search = mnt.search.Value()
		mnt.query.Page = 1
		m.syncViewport()
		return m, cmd
	}
	m.syncViewport()
	return m, nil
}

func (m GridModel) View() string {
	var strip string
	switch {
	case m.prompting:
		strip = m.styles.Bold.Render("New card: ") + m.prompt.View()
	case m.searchActive():
		mnt := m.focusedMount()
		strip = m.styles.Bold.Render("Search "+mnt.def.Title+": ") + mnt.search.View()
	case m.generating:
		strip = m.styles.Info.Render("Generating card…")
	default:
		strip = m.status
	}
	return m.viewport.View() + "\n" + strip
}

// typing reports whether a text input on this page owns the keyboard.
func (m GridModel) typing() bool {
	if m.prompting {
		return true
	}
	mnt := m.focusedMount()
	return mnt != nil && mnt.search.Focused()
}

func (m GridModel) searchActive() bool {
	mnt := m.focusedMount()
	return mnt != nil && mnt.search.Focused()
}

func (m GridModel) focusedMount() *gridMount {
	if m.focused < 0 || m.focused >= len(m.mounts) {
		return nil
	}
	return m.mounts[m.focused]
}

func (m *GridModel) moveFocus(delta int) {
	if len(m.mounts) == 0 {
		return
	}
	m.focused = (m.focused + delta + len(m.mounts)) % len(m.mounts)
	m.status = ""
}

func (m *GridModel) focusCard(id string) {
	for i, mnt := range m.mounts {
		if mnt.def.ID == id {
			m.focused = i
			return
		}
	}
}

func (m *GridModel) startSearch() {
	mnt := m.focusedMount()
	if mnt == nil || mnt.def.Declarative == nil {
		return
	}
	if len(mnt.def.Declarative.SearchFields) == 0 {
		m.status = m.styles.Muted.Render("this card has no search fields")
		return
	}
	m.status = ""
	mnt.search.Focus()
}

// cycleSort advances the focused card's sort field through its columns
// and back to unsorted.
func (m *GridModel) cycleSort() {
	mnt := m.focusedMount()
	if mnt == nil || mnt.def.Declarative == nil {
		return
	}
	cols := mnt.def.Declarative.Columns
	next := ""
	if mnt.query.SortField == "" {
		if len(cols) > 0 {
			next = cols[0].Field
		}
	} else {
		for i, col := range cols {
			if col.Field == mnt.query.SortField && i+1 < len(cols) {
				next = cols[i+1].Field
				break
			}
		}
	}
	mnt.query.SortField = next
	mnt.query.Page = 1
	if next == "" {
		m.status = m.styles.Muted.Render("sort cleared")
	} else {
		m.status = m.styles.Muted.Render("sort by " + next)
	}
}

func (m *GridModel) toggleSortDir() {
	mnt := m.focusedMount()
	if mnt == nil || mnt.def.Declarative == nil || mnt.query.SortField == "" {
		return
	}
	mnt.query.SortDesc = !mnt.query.SortDesc
	mnt.query.Page = 1
}

// movePage steps the focused card's page, letting the engine clamp to
// the valid range.
func (m *GridModel) movePage(delta int) {
	mnt := m.focusedMount()
	if mnt == nil || mnt.def.Declarative == nil {
		return
	}
	q := mnt.query
	q.Page += delta
	res := render.Apply(mnt.def.Declarative.StaticData, mnt.def.Declarative.SearchFields, q)
	mnt.query.Page = res.Page
}

func (m *GridModel) syncViewport() {
	if m.width == 0 {
		return
	}
	m.viewport.SetContent(m.renderGrid())
}

// renderGrid packs mounts into rows by grid span and paints each slot.
func (m GridModel) renderGrid() string {
	if len(m.mounts) == 0 {
		return m.styles.Muted.Padding(1, 2).Render(
			"No cards yet.\n\nPress g to generate one, or run `cardsmith seed` for starters.")
	}

	unit := max(m.width/gridUnits, 5)

	var rows [][]*gridMount
	var cur []*gridMount
	used := 0
	for _, mnt := range m.mounts {
		w := mnt.span()
		if len(cur) > 0 && used+w > gridUnits {
			rows = append(rows, cur)
			cur, used = nil, 0
		}
		cur = append(cur, mnt)
		used += w
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}

	idx := 0
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, mnt := range row {
			cells = append(cells, m.renderMount(mnt, unit, idx == m.focused))
			idx++
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderMount paints one slot: title bar plus the card body, framed by
// the slot border. Declarative bodies are cached; code bodies rerender
// every frame because their output may depend on the clock.
func (m GridModel) renderMount(mnt *gridMount, unit int, focused bool) string {
	st := m.styles
	styleWidth := max(mnt.span()*unit-4, 12)
	innerWidth := styleWidth - 2

	frame := st.Card
	if focused {
		frame = st.CardFocused
	}

	var body string
	switch {
	case mnt.entry == nil:
		frame = st.CardError
		body = renderErrorBody(st, "failed to load", mnt.def.LoadError)
	case mnt.def.Tier == card.TierCode:
		out, err := mnt.entry.Component().RenderFor(mnt.def.ID,
			scope.NewCard(mnt.def.Title, innerWidth, nil, nil))
		if err != nil {
			body = renderErrorBody(st, "card failed", err.Error())
		} else {
			body = out
		}
	default:
		q := mnt.query
		key := ComputeKey(mnt.def.ID, mnt.def.UpdatedAt.UnixNano(), innerWidth,
			q.Search, q.SortField, q.SortDesc, q.Page, q.Limit)
		def := mnt.def
		body = m.cache.GetOrCompute(key, func() string {
			return renderDeclarativeBody(st, def, q, innerWidth)
		})
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		st.CardTitle.Render(truncateCell(mnt.def.Title, innerWidth)),
		body)
	return frame.Width(styleWidth).Render(content)
}

// generateCmd asks the AI layer for a declarative card and saves it
// through the catalog, off the update loop.
func (m GridModel) generateCmd(prompt string) tea.Cmd {
	cat, gen, timeout := m.catalog, m.generator, m.generateTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := gen.GenerateTier1(ctx, prompt)
		if err != nil {
			return generateDoneMsg{err: err}
		}
		def, err := cat.Save(ctx, result.Definition())
		if err != nil {
			return generateDoneMsg{err: err}
		}
		return generateDoneMsg{def: def}
	}
}
