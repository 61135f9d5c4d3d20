package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui/style"
)

// StatusHeader shows the monitored program and the result of the last cycle
type StatusHeader struct {
	snapshot monitor.Snapshot
	now      func() time.Time
	style    StatusHeaderStyle
	width    int
}

// StatusHeaderStyle contains all styling for the status header
type StatusHeaderStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	muted     lipgloss.Style
	good      lipgloss.Style
	bad       lipgloss.Style
	counts    lipgloss.Style
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	palette := style.DefaultPalette()

	return &StatusHeader{
		now: time.Now,
		style: StatusHeaderStyle{
			container: lipgloss.NewStyle().
				Foreground(palette.Text).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2),
			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),
			muted: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),
			good: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),
			bad: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),
			counts: lipgloss.NewStyle().
				Foreground(palette.Text),
		},
	}
}

// SetSnapshot updates the displayed state
func (sh *StatusHeader) SetSnapshot(s monitor.Snapshot) {
	sh.snapshot = s
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
}

// View renders the status header
func (sh *StatusHeader) View() string {
	s := sh.snapshot
	title := sh.style.title.Render("7affle Monitor")
	program := sh.style.muted.Render(fmt.Sprintf("%s @ %s", shorten(s.ProgramID), s.Network))
	counts := sh.style.counts.Render(fmt.Sprintf("active %d | awaiting winner %d | sent %d | failed %d",
		len(s.Active), len(s.Ended), s.Announcements.Delivered, s.Announcements.Failed))

	content := lipgloss.JoinHorizontal(lipgloss.Left,
		title, "  ", program, "  ", sh.renderCycle(), "  ", counts)

	return sh.style.container.Width(max(sh.width-2, 0)).Render(content)
}

func (sh *StatusHeader) renderCycle() string {
	s := sh.snapshot
	if s.Cycles == 0 {
		return sh.style.muted.Render("⏳ waiting for first cycle")
	}
	ago := sh.now().Sub(s.LastCycleAt).Round(time.Second)
	if s.LastError != "" {
		return sh.style.bad.Render(fmt.Sprintf("🔴 cycle #%d failed %s ago", s.Cycles, ago))
	}
	return sh.style.good.Render(fmt.Sprintf("🟢 cycle #%d %s ago (%d new)", s.Cycles, ago, s.New))
}

// GetHeight returns the component height for layout calculations
func (sh *StatusHeader) GetHeight() int {
	return 3 // Border + content
}

func shorten(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
