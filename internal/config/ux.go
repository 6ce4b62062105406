package config

import "fmt"

// UIConfig holds terminal UI configuration.
type UIConfig struct {
	// Theme is "auto", "dark" or "light". auto follows the terminal background.
	Theme string `yaml:"theme"`

	// ListWidth is the task list pane width in columns (0 = a third of the screen)
	ListWidth int `yaml:"list_width,omitempty"`

	// Clipboard enables ctrl+y copy of the extra filter
	Clipboard bool `yaml:"clipboard"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Theme:     "auto",
		ListWidth: 0,
		Clipboard: true,
	}
}

// Validate checks the theme name and pane width.
func (u UIConfig) Validate() error {
	switch u.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("invalid ui theme: %s (valid: auto, dark, light)", u.Theme)
	}
	if u.ListWidth < 0 {
		return fmt.Errorf("ui.list_width must not be negative: %d", u.ListWidth)
	}
	return nil
}
