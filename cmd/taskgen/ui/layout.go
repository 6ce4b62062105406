// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for pane sizing
const (
	// Panel borders and spacing
	PanelBorderWidth = 1
	PanelPaddingH    = 1
	PanelPaddingV    = 0

	// Control areas
	HeaderHeight = 1
	FooterHeight = 2

	// Field editor
	FieldLabelWidth = 14

	// Responsive breakpoints
	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 16
	CompactModeWidth      = 100

	// List pane
	MinListWidth     = 18
	DefaultListRatio = 0.33
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	ListWidth      int // fixed list width, 0 = ratio
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height, listWidth int) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		ListWidth:      listWidth,
		IsCompact:      width < CompactModeWidth,
	}
}

// PaneWidths splits the terminal into list and detail panes (outer widths).
func (l LayoutConfig) PaneWidths() (list, detail int) {
	list = l.ListWidth
	if list <= 0 {
		list = int(float64(l.TerminalWidth) * DefaultListRatio)
	}
	if list < MinListWidth {
		list = MinListWidth
	}
	if list > l.TerminalWidth-MinListWidth {
		list = l.TerminalWidth / 2
	}
	detail = l.TerminalWidth - list
	return list, detail
}

// BodyHeight returns the outer pane height between header and footer.
func (l LayoutConfig) BodyHeight() int {
	h := l.TerminalHeight - HeaderHeight - FooterHeight
	if h < 3 {
		return 3
	}
	return h
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	w := panelWidth - (PanelBorderWidth * 2) - (PanelPaddingH * 2)
	if w < 1 {
		return 1
	}
	return w
}

// PanelContentHeight returns the content height inside a bordered panel
func PanelContentHeight(panelHeight int) int {
	h := panelHeight - (PanelBorderWidth * 2) - (PanelPaddingV * 2)
	if h < 1 {
		return 1
	}
	return h
}
