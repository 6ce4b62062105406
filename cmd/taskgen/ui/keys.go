package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Open      key.Binding
	NextGroup key.Binding
	PrevGroup key.Binding
	Save      key.Binding
	Reload    key.Binding
	Delete    key.Binding
	AddRow    key.Binding
	DelRow    key.Binding
	Copy      key.Binding
	Mark      key.Binding
	Merge     key.Binding
	Duplicate key.Binding
	Create    key.Binding
	Back      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		NextGroup: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next group")),
		PrevGroup: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev group")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Reload:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "cancel edits")),
		Delete:    key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete task")),
		AddRow:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "add filter row")),
		DelRow:    key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "delete filter row")),
		Copy:      key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy filter")),
		Mark:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark for merge")),
		Merge:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "merge marked")),
		Duplicate: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "duplicate")),
		Create:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new from template")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to list")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// listHelp is shown while the task list has focus.
type listHelp keyMap

func (k listHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Mark, k.Merge, k.Duplicate, k.Create, k.Delete, k.Quit}
}

func (k listHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// editHelp is shown while a field or filter cell has focus.
type editHelp keyMap

func (k editHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.NextGroup, k.Save, k.Reload, k.AddRow, k.DelRow, k.Copy, k.Delete, k.Back}
}

func (k editHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
