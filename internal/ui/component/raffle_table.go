package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui/style"
)

// RaffleTable lists active raffles and ended raffles awaiting a winner
type RaffleTable struct {
	table     table.Model
	container lipgloss.Style
	focused   lipgloss.Style
	active    lipgloss.Style
	ended     lipgloss.Style
	now       func() time.Time
	width     int
}

var raffleColumns = []table.Column{
	{Title: "State", Width: 8},
	{Title: "ID", Width: 14},
	{Title: "Name", Width: 22},
	{Title: "Price", Width: 10},
	{Title: "Sold", Width: 9},
	{Title: "Ends / deadline", Width: 16},
}

// NewRaffleTable creates the raffle table
func NewRaffleTable() *RaffleTable {
	palette := style.DefaultPalette()

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(palette.Secondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.TextMuted).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(palette.Background).
		Background(palette.Primary)

	t := table.New(
		table.WithColumns(raffleColumns),
		table.WithHeight(6),
		table.WithStyles(styles),
	)

	container := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.TextMuted)

	return &RaffleTable{
		table:     t,
		container: container,
		focused:   container.BorderForeground(palette.Primary),
		active:    lipgloss.NewStyle().Foreground(palette.Active),
		ended:     lipgloss.NewStyle().Foreground(palette.Ended),
		now:       time.Now,
	}
}

// SetSnapshot replaces the rows
func (rt *RaffleTable) SetSnapshot(s monitor.Snapshot) {
	now := rt.now()
	rows := make([]table.Row, 0, len(s.Active)+len(s.Ended))
	for _, r := range s.Active {
		sold := fmt.Sprintf("%d", r.TicketsSold)
		if r.MaxTickets > 0 {
			sold = fmt.Sprintf("%d/%d", r.TicketsSold, r.MaxTickets)
		}
		rows = append(rows, table.Row{
			"active",
			r.ID,
			r.Name,
			notify.FormatSOL(r.TicketPrice) + " SOL",
			sold,
			until(now, r.EndTime),
		})
	}
	for _, e := range s.Ended {
		rows = append(rows, table.Row{
			"ended",
			e.ID,
			e.Name,
			notify.FormatSOL(e.TicketPrice) + " SOL",
			fmt.Sprintf("%d", e.TicketsSold),
			until(now, e.Deadline),
		})
	}
	rt.table.SetRows(rows)
}

// Rows returns the current rows
func (rt *RaffleTable) Rows() []table.Row {
	return rt.table.Rows()
}

// SetSize sets the table dimensions
func (rt *RaffleTable) SetSize(width, height int) {
	rt.width = width
	rt.table.SetWidth(max(width-2, 10))
	rt.table.SetHeight(max(height-2, 3))
}

// SetFocused marks the table as receiving navigation keys
func (rt *RaffleTable) SetFocused(focused bool) {
	if focused {
		rt.table.Focus()
	} else {
		rt.table.Blur()
	}
}

// Update forwards navigation keys
func (rt *RaffleTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	rt.table, cmd = rt.table.Update(msg)
	return cmd
}

// View renders the table
func (rt *RaffleTable) View() string {
	container := rt.container
	if rt.table.Focused() {
		container = rt.focused
	}
	if len(rt.table.Rows()) == 0 {
		return container.Width(max(rt.width-2, 0)).Render("No raffles tracked yet")
	}
	return container.Render(rt.table.View())
}

// until renders the distance to a unix deadline
func until(now time.Time, unix int64) string {
	d := time.Unix(unix, 0).Sub(now).Round(time.Second)
	if d <= 0 {
		return "passed"
	}
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
	}
	return d.String()
}
