// Package ui is the terminal front end: a browsable checklist
// dashboard with expandable item trees, filtering, and keyboard-driven
// editing. All state lives in the store; the UI only renders it and
// forwards intents to the sync manager.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuskit/checklists/internal/model"
	"github.com/campuskit/checklists/internal/store"
	"github.com/campuskit/checklists/internal/sync"
	"github.com/campuskit/checklists/internal/theme"
)

// opTimeout bounds each remote operation triggered from the UI.
const opTimeout = 30 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeTemplates
)

// storeEventMsg wraps a store change notification.
type storeEventMsg store.Event

// storeClosedMsg is sent when the store subscription ends.
type storeClosedMsg struct{}

// opDoneMsg reports a finished remote operation. The store already
// reflects the outcome (settled or rolled back); Err is informational.
type opDoneMsg struct {
	Err error
}

// templatesMsg carries the fetched template list for the picker.
type templatesMsg struct {
	Templates []model.Template
	Err       error
}

// statusFilters is the cycle order for the status filter key.
var statusFilters = []string{
	store.FilterAll,
	store.FilterNotStarted,
	store.FilterInProgress,
	store.FilterCompleted,
}

// priorityFilters is the cycle order for the priority filter key.
var priorityFilters = []model.Priority{
	"",
	model.PriorityCritical,
	model.PriorityHigh,
	model.PriorityMedium,
	model.PriorityLow,
}

// Model is the root Bubble Tea model.
type Model struct {
	store   *store.Store
	manager *sync.Manager

	mode        mode
	rows        []Row
	cursor      int
	searchInput textinput.Model

	templates []model.Template
	tplCursor int
	statusIdx int
	prioIdx   int

	width  int
	height int
	subID  int
	events <-chan store.Event
}

// New creates the root model and subscribes to store changes.
func New(st *store.Store, mgr *sync.Manager) Model {
	si := textinput.New()
	si.Placeholder = "search checklists and items..."
	si.Prompt = "/ "

	subID, events := st.Subscribe()

	m := Model{
		store:       st,
		manager:     mgr,
		searchInput: si,
		subID:       subID,
		events:      events,
	}
	m.refresh()
	return m
}

// Init starts the store event subscription loop.
func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// waitForEvent blocks on the store's change channel and re-arms after
// every message, the same pattern the sync poller uses for results.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return storeClosedMsg{}
		}
		return storeEventMsg(ev)
	}
}

// refresh rebuilds the visible rows from the store and clamps the cursor.
func (m *Model) refresh() {
	m.rows = buildRows(m.store.FilteredChecklists(), m.store.IsExpanded)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.searchInput.Width = msg.Width - 4
		return m, nil

	case storeEventMsg:
		m.refresh()
		return m, m.waitForEvent()

	case storeClosedMsg:
		return m, tea.Quit

	case opDoneMsg:
		// The store already reflects the outcome; rows were rebuilt by
		// the store event. Nothing to do here.
		return m, nil

	case templatesMsg:
		if msg.Err == nil {
			m.templates = msg.Templates
			m.tplCursor = 0
			m.mode = modeTemplates
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeTemplates:
			return m.updateTemplates(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.store.Unsubscribe(m.subID)
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "tab":
		if row, ok := m.currentRow(); ok && row.Item == nil {
			id := row.Checklist.ID
			m.store.SetExpanded(id, !m.store.IsExpanded(id))
			m.store.SelectChecklist(id)
		}

	case " ", "enter":
		if row, ok := m.currentRow(); ok && row.Item != nil {
			return m, m.runOp(func(ctx context.Context) error {
				return m.manager.ToggleItem(ctx, row.Checklist.ID, row.Item.ID)
			})
		}

	case "d":
		if row, ok := m.currentRow(); ok {
			if row.Item != nil {
				return m, m.runOp(func(ctx context.Context) error {
					return m.manager.DeleteItem(ctx, row.Checklist.ID, row.Item.ID)
				})
			}
			return m, m.runOp(func(ctx context.Context) error {
				return m.manager.DeleteChecklist(ctx, row.Checklist.ID)
			})
		}

	case "K":
		return m.moveItem(-1)

	case "J":
		return m.moveItem(1)

	case "<":
		return m.unnestItem()

	case ">":
		return m.nestItem()

	case "/":
		m.mode = modeSearch
		m.searchInput.SetValue(m.store.Filter().Search)
		m.searchInput.Focus()
		return m, textinput.Blink

	case "s":
		m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
		f := m.store.Filter()
		f.Status = statusFilters[m.statusIdx]
		m.store.SetFilter(f)

	case "p":
		m.prioIdx = (m.prioIdx + 1) % len(priorityFilters)
		f := m.store.Filter()
		f.Priority = priorityFilters[m.prioIdx]
		m.store.SetFilter(f)

	case "t":
		m.store.SetShowTemplates(true)
		return m, m.fetchTemplates()

	case "e":
		m.store.ClearError()
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.mode = modeBrowse
		m.searchInput.Blur()
		f := m.store.Filter()
		f.Search = m.searchInput.Value()
		m.store.SetFilter(f)
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) updateTemplates(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeBrowse
		m.store.SetShowTemplates(false)

	case "up", "k":
		if m.tplCursor > 0 {
			m.tplCursor--
		}

	case "down", "j":
		if m.tplCursor < len(m.templates)-1 {
			m.tplCursor++
		}

	case "enter":
		if m.tplCursor < len(m.templates) {
			tpl := m.templates[m.tplCursor]
			m.mode = modeBrowse
			return m, m.runOp(func(ctx context.Context) error {
				return m.manager.CopyTemplate(ctx, tpl.ID)
			})
		}
	}

	return m, nil
}

// moveItem swaps the focused item with its previous/next sibling and
// commits the new order.
func (m Model) moveItem(delta int) (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok || row.Item == nil {
		return m, nil
	}
	items, ok := m.store.Items(row.Checklist.ID)
	if !ok {
		return m, nil
	}
	reordered := moveWithinSiblings(items, row.Item.ID, delta)
	if reordered == nil {
		return m, nil
	}
	checklistID := row.Checklist.ID
	return m, m.runOp(func(ctx context.Context) error {
		return m.manager.ReorderItems(ctx, checklistID, reordered)
	})
}

// nestItem re-parents the focused item under its previous sibling.
func (m Model) nestItem() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok || row.Item == nil {
		return m, nil
	}
	items, ok := m.store.Items(row.Checklist.ID)
	if !ok {
		return m, nil
	}

	prev := previousSibling(items, *row.Item)
	if prev == nil {
		return m, nil
	}

	checklistID, itemID, parentID := row.Checklist.ID, row.Item.ID, prev.ID
	return m, m.runOp(func(ctx context.Context) error {
		return m.manager.ReparentItem(ctx, checklistID, itemID, &parentID)
	})
}

// unnestItem promotes the focused item to its grandparent level.
func (m Model) unnestItem() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok || row.Item == nil || row.Item.ParentID == nil {
		return m, nil
	}
	items, ok := m.store.Items(row.Checklist.ID)
	if !ok {
		return m, nil
	}

	var grandparent *string
	for i := range items {
		if items[i].ID == *row.Item.ParentID {
			grandparent = items[i].ParentID
			break
		}
	}

	checklistID, itemID := row.Checklist.ID, row.Item.ID
	return m, m.runOp(func(ctx context.Context) error {
		return m.manager.ReparentItem(ctx, checklistID, itemID, grandparent)
	})
}

func (m Model) currentRow() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

// runOp executes a manager operation off the UI goroutine.
func (m Model) runOp(op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{Err: op(ctx)}
	}
}

func (m Model) fetchTemplates() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		tpls, err := m.manager.Templates(ctx)
		return templatesMsg{Templates: tpls, Err: err}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	overall := m.store.OverallProgress()
	header := fmt.Sprintf("Checklists — %d/%d done (%d%%)",
		overall.Completed, overall.Total, overall.Percentage)
	b.WriteString(theme.HeaderStyle.Render(header))
	b.WriteString("\n\n")

	if m.mode == modeTemplates {
		b.WriteString(m.viewTemplates())
	} else {
		b.WriteString(m.viewRows())
	}

	if m.mode == modeSearch {
		b.WriteString("\n" + m.searchInput.View())
	}

	if errMsg := m.store.Error(); errMsg != "" {
		b.WriteString("\n" + theme.ErrorStyle.Render(errMsg) +
			theme.HelpStyle.Render("  (e to dismiss)"))
	}

	b.WriteString("\n" + theme.StatusBarStyle.Render(m.statusLine()))
	b.WriteString("\n" + theme.HelpStyle.Render(
		"space toggle · tab expand · J/K move · >/< nest · d delete · "+
			"/ search · s status · p priority · t templates · q quit"))

	return b.String()
}

func (m Model) viewRows() string {
	if len(m.rows) == 0 {
		return theme.HelpStyle.Render("No checklists. Press t to start from a template.")
	}

	var b strings.Builder
	for i, row := range m.rows {
		line := m.renderRow(row)
		if i == m.cursor {
			line = theme.SelectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderRow(row Row) string {
	if row.Item == nil {
		p := m.store.ChecklistProgress(row.Checklist.ID)
		marker := "▸"
		if m.store.IsExpanded(row.Checklist.ID) {
			marker = "▾"
		}
		return fmt.Sprintf("%s %s %s",
			marker,
			row.Checklist.Title,
			theme.ProgressStyle.Render(
				fmt.Sprintf("[%d/%d %d%%]", p.Completed, p.Total, p.Percentage)),
		)
	}

	check := "[ ]"
	title := row.Item.Title
	if row.Item.IsCompleted {
		check = "[x]"
		title = theme.DoneStyle.Render(title)
	}
	prio := ""
	if row.Item.Priority != model.PriorityMedium && row.Item.Priority != "" {
		prio = " " + theme.PriorityStyle(string(row.Item.Priority)).
			Render("("+string(row.Item.Priority)+")")
	}
	return theme.TreePrefixStyle.Render(row.Prefix) + check + " " + title + prio
}

func (m Model) viewTemplates() string {
	if len(m.templates) == 0 {
		return theme.HelpStyle.Render("No templates available.")
	}

	var b strings.Builder
	b.WriteString("Pick a template:\n\n")
	for i, tpl := range m.templates {
		line := fmt.Sprintf("%s (%s, %d items)", tpl.Title, tpl.Category, len(tpl.Items))
		if i == m.tplCursor {
			line = theme.SelectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) statusLine() string {
	f := m.store.Filter()
	parts := []string{"status: " + orAll(f.Status)}
	parts = append(parts, "priority: "+orAll(string(f.Priority)))
	if f.Search != "" {
		parts = append(parts, "search: "+f.Search)
	}
	return strings.Join(parts, " · ")
}

func orAll(v string) string {
	if v == "" {
		return store.FilterAll
	}
	return v
}
