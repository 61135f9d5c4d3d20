package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui/style"
)

// EventFeed shows recent domain events, newest on top
type EventFeed struct {
	records  []events.Record
	limit    int
	viewport viewport.Model
	width    int

	container lipgloss.Style
	focused   lipgloss.Style
	title     lipgloss.Style
	timestamp lipgloss.Style
	kinds     map[events.EventType]lipgloss.Style
	plain     lipgloss.Style
	isFocused bool
}

// NewEventFeed creates a feed keeping up to limit records
func NewEventFeed(limit int) *EventFeed {
	palette := style.DefaultPalette()
	container := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.TextMuted).
		Padding(0, 1)

	return &EventFeed{
		limit:     limit,
		viewport:  viewport.New(50, 6),
		container: container,
		focused:   container.BorderForeground(palette.Primary),
		title:     lipgloss.NewStyle().Foreground(palette.Secondary).Bold(true),
		timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
		plain:     lipgloss.NewStyle().Foreground(palette.Text),
		kinds: map[events.EventType]lipgloss.Style{
			events.RaffleCreated:      lipgloss.NewStyle().Foreground(palette.Active).Bold(true),
			events.RaffleEnded:        lipgloss.NewStyle().Foreground(palette.Ended),
			events.WinnerAnnounced:    lipgloss.NewStyle().Foreground(palette.Winner).Bold(true),
			events.AnnouncementFailed: lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			events.CycleFailed:        lipgloss.NewStyle().Foreground(palette.Error),
			events.CycleCompleted:     lipgloss.NewStyle().Foreground(palette.TextMuted),
		},
	}
}

// Seed replaces the records, newest first
func (f *EventFeed) Seed(records []events.Record) {
	f.records = append([]events.Record(nil), records...)
	if len(f.records) > f.limit {
		f.records = f.records[:f.limit]
	}
	f.render()
}

// Push adds a record on top
func (f *EventFeed) Push(rec events.Record) {
	f.records = append([]events.Record{rec}, f.records...)
	if len(f.records) > f.limit {
		f.records = f.records[:f.limit]
	}
	f.render()
}

// Len returns the number of records shown
func (f *EventFeed) Len() int {
	return len(f.records)
}

// SetSize sets the pane dimensions
func (f *EventFeed) SetSize(width, height int) {
	f.width = width
	f.viewport.Width = max(width-4, 10)
	f.viewport.Height = max(height-3, 2)
	f.render()
}

// SetFocused marks the pane as receiving scroll keys
func (f *EventFeed) SetFocused(focused bool) {
	f.isFocused = focused
}

// Update handles scrolling
func (f *EventFeed) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.viewport, cmd = f.viewport.Update(msg)
	return cmd
}

// View renders the feed
func (f *EventFeed) View() string {
	container := f.container
	if f.isFocused {
		container = f.focused
	}
	content := lipgloss.JoinVertical(lipgloss.Left, f.title.Render("Events"), f.viewport.View())
	return container.Width(max(f.width-2, 0)).Render(content)
}

func (f *EventFeed) render() {
	if len(f.records) == 0 {
		f.viewport.SetContent("No events yet")
		return
	}
	lines := make([]string, 0, len(f.records))
	for _, rec := range f.records {
		st, ok := f.kinds[rec.Type]
		if !ok {
			st = f.plain
		}
		lines = append(lines, f.timestamp.Render(rec.Time.Format("15:04:05"))+" "+st.Render(rec.Summary))
	}
	f.viewport.SetContent(strings.Join(lines, "\n"))
}
