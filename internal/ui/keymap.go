package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the dashboard
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Scrolling of the focused pane
	Up   key.Binding
	Down key.Binding
	Tab  key.Binding

	Refresh    key.Binding
	ToggleLogs key.Binding

	// Logs
	FilterDebug key.Binding
	FilterInfo  key.Binding
	FilterWarn  key.Binding
	FilterError key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r/F5", "refresh"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("l", "ctrl+l"),
			key.WithHelp("l", "toggle logs"),
		),
		FilterDebug: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "debug"),
		),
		FilterInfo: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "info"),
		),
		FilterWarn: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("F3", "warn"),
		),
		FilterError: key.NewBinding(
			key.WithKeys("f4"),
			key.WithHelp("F4", "error"),
		),
	}
}

// ShortHelp returns key help text for the help bar
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Refresh, k.ToggleLogs, k.Help, k.Quit}
}

// FullHelp returns extended help text
func (k KeyMap) FullHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Tab, k.Refresh, k.ToggleLogs,
		k.FilterDebug, k.FilterInfo, k.FilterWarn, k.FilterError,
		k.Help, k.Quit,
	}
}
