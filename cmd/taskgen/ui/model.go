package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskgen/internal/logging"
	"taskgen/internal/session"
	"taskgen/internal/store"
	"taskgen/internal/watcher"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// Options wires the model to its session and event stream.
type Options struct {
	Session   *session.Session
	Confirmer *PromptConfirmer // must be the confirmer the session was built with
	Events    <-chan watcher.Event
	Refresh   time.Duration
	Styles    Styles
	ListWidth int
	Clipboard bool
}

type focusArea int

const (
	focusList focusArea = iota
	focusEdit
)

// taskItem adapts a task name to list.Item
type taskItem struct {
	name   string
	open   bool
	dirty  bool
	marked bool
}

func (i taskItem) FilterValue() string { return i.name }
func (i taskItem) Description() string { return "" }
func (i taskItem) Title() string {
	var sb strings.Builder
	if i.marked {
		sb.WriteString("● ")
	} else {
		sb.WriteString("  ")
	}
	sb.WriteString(i.name)
	if i.open {
		sb.WriteString(" ◂")
		if i.dirty {
			sb.WriteString("*")
		}
	}
	return sb.String()
}

// Model is the root bubbletea model.
type Model struct {
	sess      *session.Session
	conf      *PromptConfirmer
	events    <-chan watcher.Event
	window    time.Duration
	clipboard bool

	styles Styles
	keys   keyMap
	help   help.Model
	layout LayoutConfig

	list   list.Model
	detail viewport.Model
	inputs []textinput.Model
	cell   textinput.Model

	focus  focusArea
	cursor int // < len(inputs): a field; beyond: filter cells, two per row
	marked map[string]bool
	prompt *promptState
	status string
}

// New builds the model and loads the initial listing.
func New(opts Options) Model {
	conf := opts.Confirmer
	if conf == nil {
		conf = NewPromptConfirmer()
	}
	styles := opts.Styles
	if styles.Theme == (Theme{}) {
		styles = DefaultStyles()
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tasks"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.Styles.Title = styles.Title

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	fields := opts.Session.Fields()
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = f
		inputs[i] = in
	}
	cell := textinput.New()
	cell.Prompt = ""

	m := Model{
		sess:      opts.Session,
		conf:      conf,
		events:    opts.Events,
		window:    opts.Refresh,
		clipboard: opts.Clipboard,
		styles:    styles,
		keys:      defaultKeyMap(),
		help:      help.New(),
		layout:    NewLayoutConfig(MinimumTerminalWidth, MinimumTerminalHeight, opts.ListWidth),
		list:      l,
		detail:    vp,
		inputs:    inputs,
		cell:      cell,
		marked:    make(map[string]bool),
	}
	if err := m.sess.Refresh(); err != nil {
		m.status = err.Error()
	}
	m.syncList()
	m.syncInputs()
	m.setSize(m.layout.TerminalWidth, m.layout.TerminalHeight)
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(opts Options) error {
	_, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	return err
}

// Init starts the event wait.
func (m Model) Init() tea.Cmd {
	if m.events == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, waitForEvents(m.events, m.window))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.update(msg)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)

	case eventsMsg:
		for _, ev := range msg.events {
			m.sess.HandleEvent(ev)
		}
		m.syncList()
		if len(msg.events) > 0 {
			m.status = m.sess.Message()
		}
		if msg.closed {
			logging.UIWarn("watcher channel closed; live refresh off")
			m.events = nil
		} else if m.events != nil {
			cmd = waitForEvents(m.events, m.window)
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.prompt != nil {
			m, cmd = m.updatePrompt(msg)
			break
		}
		if handled, quit := m.handleGlobalKey(msg); handled {
			if quit {
				return m, tea.Quit
			}
			break
		}
		if m.focus == focusList {
			m, cmd = m.updateList(msg)
		} else {
			m, cmd = m.updateEdit(msg)
		}

	default:
		// Cursor blink and other ticks go to whatever input has focus.
		if m.prompt != nil && m.prompt.isText() {
			m.prompt.input, cmd = m.prompt.input.Update(msg)
		} else if m.focus == focusEdit {
			cmd = m.updateFocusedInput(msg)
		}
	}

	m.refreshDetail()
	return m, cmd
}

// handleGlobalKey processes keys that work in both focus areas.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (handled, quit bool) {
	open := m.sess.State() != session.StateEmpty

	switch {
	case key.Matches(msg, m.keys.Save) && open:
		if err := m.sess.Save(); err == nil {
			m.syncInputs()
		}
		m.status = m.sess.Message()
		m.syncList()
	case key.Matches(msg, m.keys.Reload) && open:
		_ = m.sess.Cancel()
		m.status = m.sess.Message()
		m.syncInputs()
		m.syncList()
	case key.Matches(msg, m.keys.Delete) && open:
		m.conf.reset()
		m.prompt = &promptState{kind: promptDelete, question: session.DeletePrompts(m.sess.Name())[0]}
	case key.Matches(msg, m.keys.NextGroup) && open:
		m.sess.CycleGroup(1)
		m.syncInputs()
	case key.Matches(msg, m.keys.PrevGroup) && open:
		m.sess.CycleGroup(-1)
		m.syncInputs()
	case key.Matches(msg, m.keys.Copy) && open:
		m.copyFilter()
	case key.Matches(msg, m.keys.Quit) && m.focus == focusList:
		return true, true
	default:
		return false, false
	}
	return true, false
}

func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		name := m.selectedName()
		if name == "" {
			return m, nil
		}
		if err := m.sess.Select(name); err != nil {
			m.status = m.sess.Message()
			m.syncList()
			return m, nil
		}
		m.status = m.sess.Message()
		m.syncList()
		m.syncInputs()
		cmd := m.setFocus(focusEdit, 0)
		return m, cmd

	case key.Matches(msg, m.keys.Mark):
		if name := m.selectedName(); name != "" {
			m.marked[name] = !m.marked[name]
			if !m.marked[name] {
				delete(m.marked, name)
			}
			m.syncList()
		}
		return m, nil

	case key.Matches(msg, m.keys.Merge):
		names := m.markedNames()
		if len(names) < 2 {
			m.status = "Mark at least two tasks with space to merge"
			return m, nil
		}
		m.prompt = newTextPrompt(promptMerge, fmt.Sprintf("Merge %s into:", strings.Join(names, ", ")), "new task name", nil)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Duplicate):
		if m.sess.State() == session.StateEmpty {
			m.status = "Open a task to duplicate it"
			return m, nil
		}
		m.prompt = newTextPrompt(promptDuplicate, fmt.Sprintf("Duplicate %s as:", m.sess.Name()), "new task name", nil)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Create):
		templates, err := m.sess.Templates()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if len(templates) == 0 {
			m.status = "No templates available"
			return m, nil
		}
		m.prompt = newTextPrompt(promptCreateName, "New task name:", "name", nil)
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		cmd := m.setFocus(focusList, 0)
		return m, cmd

	case key.Matches(msg, m.keys.Up):
		cmd := m.setFocus(focusEdit, m.cursor-1)
		return m, cmd

	case key.Matches(msg, m.keys.Down):
		cmd := m.setFocus(focusEdit, m.cursor+1)
		return m, cmd

	case key.Matches(msg, m.keys.AddRow):
		idx, err := m.sess.AddFilterRow()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.syncInputs()
		m.syncList()
		cmd := m.setFocus(focusEdit, len(m.inputs)+idx*2)
		return m, cmd

	case key.Matches(msg, m.keys.DelRow):
		row, _, ok := m.cellAt(m.cursor)
		if !ok {
			m.status = "Move to a filter row to delete it"
			return m, nil
		}
		if err := m.sess.DeleteFilterRow(row); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.syncInputs()
		m.syncList()
		cmd := m.setFocus(focusEdit, m.cursor)
		return m, cmd
	}

	cmd := m.updateFocusedInput(msg)
	return m, cmd
}

// updateFocusedInput forwards msg to the focused input and pushes any change
// into the session.
func (m *Model) updateFocusedInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	fields := m.sess.Fields()

	if m.cursor < len(m.inputs) {
		before := m.inputs[m.cursor].Value()
		m.inputs[m.cursor], cmd = m.inputs[m.cursor].Update(msg)
		if after := m.inputs[m.cursor].Value(); after != before {
			if err := m.sess.EditField(fields[m.cursor], after); err != nil {
				m.status = err.Error()
			}
			m.syncInputs()
			m.syncList()
		}
		return cmd
	}

	row, col, ok := m.cellAt(m.cursor)
	if !ok {
		return nil
	}
	before := m.cell.Value()
	m.cell, cmd = m.cell.Update(msg)
	if after := m.cell.Value(); after != before {
		pair := m.sess.FilterRows()[row]
		if col == 0 {
			pair.Section = after
		} else {
			pair.Price = after
		}
		if err := m.sess.SetFilterRow(row, pair.Section, pair.Price); err != nil {
			m.status = err.Error()
		}
		m.syncInputs()
		m.syncList()
	}
	return cmd
}

func (m Model) updatePrompt(msg tea.KeyMsg) (Model, tea.Cmd) {
	p := m.prompt

	if !p.isText() {
		var answer bool
		switch strings.ToLower(msg.String()) {
		case "y":
			answer = true
		case "n", "esc":
			answer = false
		default:
			return m, nil
		}
		p.answers = append(p.answers, answer)
		prompts := session.DeletePrompts(m.sess.Name())
		if answer && len(p.answers) < len(prompts) {
			p.question = prompts[len(p.answers)]
			return m, nil
		}
		m.prompt = nil
		m.conf.push(p.answers...)
		err := m.sess.Delete(context.Background())
		m.conf.reset()
		m.status = m.sess.Message()
		if err == nil {
			m.syncList()
			m.syncInputs()
			cmd := m.setFocus(focusList, 0)
			return m, cmd
		}
		if !errors.Is(err, session.ErrDeclined) {
			logging.UIError("delete: %v", err)
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = nil
		m.status = "Cancelled"
		return m, nil
	case tea.KeyEnter:
		return m.submitPrompt(strings.TrimSpace(p.input.Value()))
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt(value string) (Model, tea.Cmd) {
	p := m.prompt
	if value == "" && p.kind == promptCreateTemplate {
		value = p.input.Placeholder
	}
	if value == "" {
		m.status = "A name is required"
		return m, nil
	}
	m.prompt = nil

	var err error
	switch p.kind {
	case promptDuplicate:
		_, err = m.sess.Duplicate(value)
	case promptMerge:
		_, err = m.sess.Merge(m.markedNames(), value)
		if err == nil {
			m.marked = make(map[string]bool)
		}
	case promptCreateName:
		templates, terr := m.sess.Templates()
		if terr != nil {
			m.status = terr.Error()
			return m, nil
		}
		next := newTextPrompt(promptCreateTemplate, fmt.Sprintf("Template for %s (%s):", value, strings.Join(templates, ", ")), templates[0], templates)
		next.name = value
		m.prompt = next
		return m, textinput.Blink
	case promptCreateTemplate:
		_, err = m.sess.Create(p.name, value)
	}

	m.status = m.sess.Message()
	m.syncList()
	m.syncInputs()
	if err != nil {
		return m, nil
	}
	if p.kind == promptDuplicate || p.kind == promptMerge {
		cmd := m.setFocus(focusEdit, 0)
		return m, cmd
	}
	return m, nil
}

func (m *Model) copyFilter() {
	if !m.clipboard {
		m.status = "Clipboard disabled in config"
		return
	}
	text := m.sess.Field(store.ColumnExtraFilter)
	if err := clipboardWriteAll(text); err != nil {
		m.status = "Failed to copy extra filter"
		logging.UIWarn("clipboard: %v", err)
		return
	}
	m.status = "Copied extra filter to clipboard"
}

// setFocus moves focus and the edit cursor, clamping to the available
// fields and filter cells.
func (m *Model) setFocus(area focusArea, cursor int) tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.cell.Blur()

	if area == focusEdit && m.sess.State() == session.StateEmpty {
		area = focusList
	}
	m.focus = area
	if area == focusList {
		return nil
	}

	total := len(m.inputs) + 2*len(m.sess.FilterRows())
	if cursor >= total {
		cursor = total - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.cursor = cursor

	if cursor < len(m.inputs) {
		return m.inputs[cursor].Focus()
	}
	row, col, _ := m.cellAt(cursor)
	pair := m.sess.FilterRows()[row]
	if col == 0 {
		m.cell.SetValue(pair.Section)
	} else {
		m.cell.SetValue(pair.Price)
	}
	return m.cell.Focus()
}

// cellAt maps an edit cursor to a filter table cell.
func (m *Model) cellAt(cursor int) (row, col int, ok bool) {
	i := cursor - len(m.inputs)
	if i < 0 {
		return 0, 0, false
	}
	row, col = i/2, i%2
	if row >= len(m.sess.FilterRows()) {
		return 0, 0, false
	}
	return row, col, true
}

// syncInputs copies the session's drafts into the inputs. Inputs already
// holding the value are left alone so the cursor does not jump.
func (m *Model) syncInputs() {
	fields := m.sess.Fields()
	for i, f := range fields {
		if v := m.sess.Field(f); m.inputs[i].Value() != v {
			m.inputs[i].SetValue(v)
		}
	}
	if m.focus == focusEdit {
		total := len(m.inputs) + 2*len(m.sess.FilterRows())
		if m.cursor >= total {
			m.setFocus(focusEdit, total-1)
		}
	}
	if m.sess.State() == session.StateEmpty && m.focus == focusEdit {
		m.setFocus(focusList, 0)
	}
}

// syncList rebuilds the list items from the session listing, keeping the
// selection on the same name when it still exists.
func (m *Model) syncList() {
	current := m.selectedName()
	open := m.sess.Name()
	dirty := m.sess.State() == session.StateEditing

	names := m.sess.Listing()
	present := make(map[string]bool, len(names))
	items := make([]list.Item, len(names))
	idx := -1
	for i, n := range names {
		present[n] = true
		items[i] = taskItem{name: n, open: n == open, dirty: dirty, marked: m.marked[n]}
		if n == current || (current == "" && n == open) {
			idx = i
		}
	}
	for n := range m.marked {
		if !present[n] {
			delete(m.marked, n)
		}
	}
	m.list.SetItems(items)
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m *Model) selectedName() string {
	if it, ok := m.list.SelectedItem().(taskItem); ok {
		return it.name
	}
	return ""
}

func (m *Model) markedNames() []string {
	var names []string
	for _, n := range m.sess.Listing() {
		if m.marked[n] {
			names = append(names, n)
		}
	}
	return names
}

func (m *Model) setSize(width, height int) {
	m.layout = NewLayoutConfig(width, height, m.layout.ListWidth)
	listW, detailW := m.layout.PaneWidths()
	bodyH := m.layout.BodyHeight()
	m.list.SetSize(PanelContentWidth(listW), PanelContentHeight(bodyH))
	m.detail.Width = PanelContentWidth(detailW)
	m.detail.Height = PanelContentHeight(bodyH)
	m.help.Width = width
	inputW := m.detail.Width - FieldLabelWidth - 1
	if inputW < 10 {
		inputW = 10
	}
	for i := range m.inputs {
		m.inputs[i].Width = inputW
	}
	m.cell.Width = inputW
	m.refreshDetail()
}
