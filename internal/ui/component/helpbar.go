package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui/style"
)

// HelpBar represents a help bar component showing keyboard shortcuts
type HelpBar struct {
	short []key.Binding
	full  []key.Binding
	width int

	showAll bool

	// Styling
	keyStyle       lipgloss.Style
	descStyle      lipgloss.Style
	sepStyle       lipgloss.Style
	containerStyle lipgloss.Style
}

// NewHelpBar creates a new help bar component
func NewHelpBar(short, full []key.Binding) *HelpBar {
	palette := style.DefaultPalette()

	return &HelpBar{
		short: short,
		full:  full,
		width: 80,

		keyStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),
		descStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
		sepStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
		containerStyle: lipgloss.NewStyle().
			Padding(0, 1),
	}
}

// SetWidth sets the help bar width
func (h *HelpBar) SetWidth(width int) {
	h.width = width
}

// ToggleAll switches between short and full help
func (h *HelpBar) ToggleAll() {
	h.showAll = !h.showAll
}

// View renders the help bar, wrapping items to the available width
func (h *HelpBar) View() string {
	bindings := h.short
	if h.showAll {
		bindings = h.full
	}

	separator := h.sepStyle.Render(" • ")
	sepWidth := lipgloss.Width(separator)
	maxWidth := h.width - 2

	var (
		lines   []string
		current []string
		width   int
	)
	for _, b := range bindings {
		if !b.Enabled() || len(b.Keys()) == 0 {
			continue
		}
		help := b.Help()
		item := h.keyStyle.Render(help.Key) + " " + h.descStyle.Render(help.Desc)
		itemWidth := lipgloss.Width(item) + sepWidth

		if width+itemWidth > maxWidth && len(current) > 0 {
			lines = append(lines, strings.Join(current, separator))
			current, width = nil, 0
		}
		current = append(current, item)
		width += itemWidth
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, separator))
	}

	return h.containerStyle.Render(strings.Join(lines, "\n"))
}
