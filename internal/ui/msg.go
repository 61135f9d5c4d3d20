package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
)

// Tea message types for UI communication

// EventMsg carries a domain event from the monitor bus
type EventMsg struct {
	Record events.Record
}

// SnapshotMsg carries a fresh monitor snapshot
type SnapshotMsg struct {
	Snapshot monitor.Snapshot
}

// tickMsg drives periodic snapshot polling
type tickMsg time.Time

// ListenUpdates returns a tea.Cmd that waits for the next message on ch
func ListenUpdates(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
