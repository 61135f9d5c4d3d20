package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/raffle-monitor/internal/logger"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui/style"
)

// LogSource is satisfied by logger.LogBuffer.
type LogSource interface {
	GetRecentLogs(limit int) []logger.LogEntry
}

// LogFilter defines what log levels to show
type LogFilter struct {
	ShowError   bool
	ShowWarning bool
	ShowInfo    bool
	ShowDebug   bool
}

// CompactLogViewer shows the tail of the in-memory log buffer
type CompactLogViewer struct {
	source   LogSource
	viewport viewport.Model
	filter   LogFilter
	style    CompactLogStyle
	limit    int
	width    int
	height   int
	visible  bool
	focused  bool
	follow   bool
	title    string
}

// CompactLogStyle contains all styling for the log viewer
type CompactLogStyle struct {
	container lipgloss.Style
	focused   lipgloss.Style
	title     lipgloss.Style
	entry     lipgloss.Style
	timestamp lipgloss.Style
	logger    lipgloss.Style
	error     lipgloss.Style
	warning   lipgloss.Style
	info      lipgloss.Style
	debug     lipgloss.Style
}

// NewCompactLogViewer creates a new compact log viewer
func NewCompactLogViewer(source LogSource) *CompactLogViewer {
	palette := style.DefaultPalette()
	container := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.TextMuted).
		Padding(0, 1)

	return &CompactLogViewer{
		source:  source,
		visible: true,
		follow:  true,
		limit:   200,
		title:   "Logs",
		filter: LogFilter{
			ShowError:   true,
			ShowWarning: true,
			ShowInfo:    true,
			ShowDebug:   false, // Hide debug by default
		},
		style: CompactLogStyle{
			container: container,
			focused:   container.BorderForeground(palette.Info),
			title:     lipgloss.NewStyle().Foreground(palette.Info).Bold(true),
			entry:     lipgloss.NewStyle().Foreground(palette.Text),
			timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
			logger:    lipgloss.NewStyle().Foreground(palette.TextSecondary),
			error:     lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			warning:   lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
			info:      lipgloss.NewStyle().Foreground(palette.Info),
			debug:     lipgloss.NewStyle().Foreground(palette.TextMuted),
		},
		viewport: viewport.New(50, 4),
	}
}

// SetSize sets the component dimensions
func (clv *CompactLogViewer) SetSize(width, height int) {
	clv.width = width
	clv.height = height

	// Border + padding + title
	clv.viewport.Width = max(width-4, 10)
	clv.viewport.Height = max(height-3, 2)
}

// SetVisible toggles the visibility of the log viewer
func (clv *CompactLogViewer) SetVisible(visible bool) {
	clv.visible = visible
}

// IsVisible returns whether the log viewer is visible
func (clv *CompactLogViewer) IsVisible() bool {
	return clv.visible
}

// SetFocused marks the pane as receiving scroll keys
func (clv *CompactLogViewer) SetFocused(focused bool) {
	clv.focused = focused
}

// ToggleLogLevel toggles a specific log level
func (clv *CompactLogViewer) ToggleLogLevel(level string) {
	switch level {
	case "error":
		clv.filter.ShowError = !clv.filter.ShowError
	case "warning":
		clv.filter.ShowWarning = !clv.filter.ShowWarning
	case "info":
		clv.filter.ShowInfo = !clv.filter.ShowInfo
	case "debug":
		clv.filter.ShowDebug = !clv.filter.ShowDebug
	}
	clv.Refresh()
}

// Filter returns the active filter
func (clv *CompactLogViewer) Filter() LogFilter {
	return clv.filter
}

// Update handles viewport scrolling
func (clv *CompactLogViewer) Update(msg tea.Msg) tea.Cmd {
	if !clv.visible {
		return nil
	}
	var cmd tea.Cmd
	clv.viewport, cmd = clv.viewport.Update(msg)
	clv.follow = clv.viewport.AtBottom()
	return cmd
}

// View renders the compact log viewer
func (clv *CompactLogViewer) View() string {
	if !clv.visible {
		return ""
	}

	title := fmt.Sprintf("%s (%s)", clv.title, clv.filterStatus())
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		clv.style.title.Render(title),
		clv.viewport.View(),
	)

	container := clv.style.container
	if clv.focused {
		container = clv.style.focused
	}
	return container.Width(max(clv.width-2, 0)).Render(content)
}

// Refresh reloads the viewport content from the log source
func (clv *CompactLogViewer) Refresh() {
	if clv.source == nil {
		clv.viewport.SetContent("No log buffer available")
		return
	}

	var lines []string
	for _, entry := range clv.source.GetRecentLogs(clv.limit) {
		if clv.shouldShowEntry(entry) {
			lines = append(lines, clv.formatLogEntry(entry))
		}
	}

	if len(lines) == 0 {
		clv.viewport.SetContent("No logs match current filter")
		return
	}

	clv.viewport.SetContent(strings.Join(lines, "\n"))
	if clv.follow {
		clv.viewport.GotoBottom()
	}
}

// shouldShowEntry determines if a log entry should be displayed based on filter
func (clv *CompactLogViewer) shouldShowEntry(entry logger.LogEntry) bool {
	switch strings.ToLower(entry.Level) {
	case "error", "dpanic", "panic", "fatal":
		return clv.filter.ShowError
	case "warning", "warn":
		return clv.filter.ShowWarning
	case "debug":
		return clv.filter.ShowDebug
	default:
		return clv.filter.ShowInfo
	}
}

// formatLogEntry formats a log entry for display
func (clv *CompactLogViewer) formatLogEntry(entry logger.LogEntry) string {
	timestamp := clv.style.timestamp.Render(entry.Timestamp.Format("15:04:05"))

	var styled string
	switch strings.ToLower(entry.Level) {
	case "error", "dpanic", "panic", "fatal":
		styled = clv.style.error.Render(entry.Message)
	case "warning", "warn":
		styled = clv.style.warning.Render(entry.Message)
	case "info":
		styled = clv.style.info.Render(entry.Message)
	case "debug":
		styled = clv.style.debug.Render(entry.Message)
	default:
		styled = clv.style.entry.Render(entry.Message)
	}

	if entry.Logger != "" {
		return fmt.Sprintf("%s %s %s", timestamp, clv.style.logger.Render("["+entry.Logger+"]"), styled)
	}
	return fmt.Sprintf("%s %s", timestamp, styled)
}

func (clv *CompactLogViewer) filterStatus() string {
	var active []string
	if clv.filter.ShowDebug {
		active = append(active, "debug")
	}
	if clv.filter.ShowInfo {
		active = append(active, "info")
	}
	if clv.filter.ShowWarning {
		active = append(active, "warn")
	}
	if clv.filter.ShowError {
		active = append(active, "error")
	}
	if len(active) == 0 {
		return "muted"
	}
	return strings.Join(active, ",")
}
