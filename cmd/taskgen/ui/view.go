package ui

import (
	"fmt"
	"strings"

	"taskgen/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.layout.TerminalWidth < MinimumTerminalWidth || m.layout.TerminalHeight < MinimumTerminalHeight {
		return m.styles.Warning.Render(fmt.Sprintf(
			"Terminal too small (%dx%d); need at least %dx%d",
			m.layout.TerminalWidth, m.layout.TerminalHeight, MinimumTerminalWidth, MinimumTerminalHeight))
	}

	listW, detailW := m.layout.PaneWidths()
	bodyH := m.layout.BodyHeight()

	listPane, detailPane := m.styles.Pane, m.styles.Pane
	if m.focus == focusList {
		listPane = m.styles.ActivePane
	} else {
		detailPane = m.styles.ActivePane
	}
	// lipgloss widths exclude the border.
	left := listPane.Width(listW - 2*PanelBorderWidth).Height(bodyH - 2*PanelBorderWidth).Render(m.list.View())
	right := detailPane.Width(detailW - 2*PanelBorderWidth).Height(bodyH - 2*PanelBorderWidth).Render(m.detail.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := "taskgen"
	if name := m.sess.Name(); name != "" {
		title += " · " + name
		if m.sess.State() == session.StateEditing {
			title += " (modified)"
		}
	}
	header := m.styles.Header.Render(title)

	var badges []string
	if m.sess.RemovedOnDisk() {
		badges = append(badges, m.styles.Badge.Render("REMOVED ON DISK"))
	} else if m.sess.Stale() {
		badges = append(badges, m.styles.Badge.Render("CHANGED ON DISK"))
	}
	if m.events == nil {
		badges = append(badges, m.styles.Muted.Render(" no live refresh"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append([]string{header}, badges...)...)
}

func (m Model) renderFooter() string {
	var line string
	switch {
	case m.prompt != nil && m.prompt.isText():
		line = m.styles.Info.Render(m.prompt.question) + " " + m.prompt.input.View()
	case m.prompt != nil:
		line = m.styles.Warning.Render(m.prompt.question + " [y/n]")
	case m.status != "":
		line = m.statusStyle().Render(m.status)
	default:
		line = " "
	}

	var helpView string
	if m.focus == focusList {
		helpView = m.help.View(listHelp(m.keys))
	} else {
		helpView = m.help.View(editHelp(m.keys))
	}
	return m.styles.Footer.Render(line) + "\n" + m.styles.Footer.Render(helpView)
}

func (m Model) statusStyle() lipgloss.Style {
	lower := strings.ToLower(m.status)
	switch {
	case strings.Contains(lower, "fail"), strings.Contains(lower, "error"), strings.Contains(lower, "not found"):
		return m.styles.Error
	case strings.Contains(lower, "cancel"), strings.Contains(lower, "removed"), strings.Contains(lower, "changed"):
		return m.styles.Warning
	case strings.Contains(lower, "saved"), strings.Contains(lower, "copied"), strings.Contains(lower, "deleted"),
		strings.Contains(lower, "created"), strings.Contains(lower, "merged"), strings.Contains(lower, "duplicated"):
		return m.styles.Success
	}
	return m.styles.Info
}

// refreshDetail redraws the detail pane into the viewport.
func (m *Model) refreshDetail() {
	m.detail.SetContent(m.renderDetail())
}

func (m Model) renderDetail() string {
	if m.sess.State() == session.StateEmpty {
		return m.styles.Muted.Render("Select a task and press enter to edit it.")
	}

	var sb strings.Builder

	groups := m.sess.Groups()
	active := m.sess.ActiveGroup()
	tabs := make([]string, 0, len(groups))
	for _, g := range groups {
		label := g
		if label == "" {
			label = "(all rows)"
		}
		if g == active {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	sb.WriteString("\n")
	sb.WriteString(m.styles.RenderDivider(m.detail.Width))
	sb.WriteString("\n")

	for i, f := range m.sess.Fields() {
		label := m.styles.Label.Render(f)
		if m.focus == focusEdit && m.cursor == i {
			label = m.styles.Label.Foreground(m.styles.Theme.Accent).Bold(true).Render(f)
		}
		sb.WriteString(label + " " + m.inputs[i].View() + "\n")
	}
	sb.WriteString("\n")

	table := NewSimpleTable("Extra filter", []string{"Section", "Price"})
	editRow, editCol, editing := m.cellAt(m.cursor)
	editing = editing && m.focus == focusEdit
	for r, p := range m.sess.FilterRows() {
		section, price := p.Section, p.Price
		if editing && r == editRow {
			if editCol == 0 {
				section = m.cell.View()
			} else {
				price = m.cell.View()
			}
		}
		table.AddRow(section, price)
	}
	if editing {
		table.HighlightRow, table.HighlightCol = editRow, editCol
	}
	sb.WriteString(table.View(m.styles))
	return sb.String()
}
