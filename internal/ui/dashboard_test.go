package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/logger"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	snap monitor.Snapshot
}

func (f *fakeMonitor) Snapshot() monitor.Snapshot { return f.snap }

type fakeFeed []events.Record

func (f fakeFeed) Recent(limit int) []events.Record {
	if limit < len(f) {
		return f[:limit]
	}
	return f
}

type fakeLogs []logger.LogEntry

func (f fakeLogs) GetRecentLogs(int) []logger.LogEntry { return f }

func newTestDashboard() (*Dashboard, *fakeMonitor) {
	mon := &fakeMonitor{snap: monitor.Snapshot{
		ProgramID:   "GUXx1x2kMBxJwLmyxWJMaWAqMhJHx7zabDqHdv7AFFLE",
		Network:     "devnet",
		Cycles:      3,
		LastCycleAt: time.Now(),
		Active: []raffle.Raffle{{
			ID:          "7F-SOL-042",
			Name:        "Summer Splash",
			TicketPrice: 80_000_000,
			EndTime:     time.Now().Add(time.Hour).Unix(),
			TicketsSold: 4,
			MaxTickets:  100,
		}},
	}}
	d := NewDashboard(Options{
		Monitor: mon,
		Feed: fakeFeed{{
			Type:    events.RaffleCreated,
			Time:    time.Now(),
			Summary: "raffle 7F-SOL-042 (Summer Splash) created",
		}},
		Logs: fakeLogs{
			{Timestamp: time.Now(), Level: "info", Logger: "monitor", Message: "Cycle completed"},
			{Timestamp: time.Now(), Level: "debug", Message: "hidden by default"},
		},
	})
	d.Update(tea.WindowSizeMsg{Width: 180, Height: 40})
	return d, mon
}

func TestDashboardRendersSnapshot(t *testing.T) {
	d, _ := newTestDashboard()

	view := d.View()
	assert.Contains(t, view, "7affle Monitor")
	assert.Contains(t, view, "GUXx...FFLE @ devnet")
	assert.Contains(t, view, "7F-SOL-042")
	assert.Contains(t, view, "0.08 SOL")
	assert.Contains(t, view, "4/100")
	assert.Contains(t, view, "Summer Splash) created")
	assert.Contains(t, view, "Cycle completed")
	assert.NotContains(t, view, "hidden by default")
}

func TestDashboardInitializing(t *testing.T) {
	d := NewDashboard(Options{})
	assert.Equal(t, "Initializing...", d.View())
}

func TestDashboardEventMsgPushesRecord(t *testing.T) {
	d, mon := newTestDashboard()
	mon.snap.Active = nil
	mon.snap.Ended = []raffle.EndedRaffle{{ID: "7F-SOL-042", Name: "Summer Splash"}}

	_, cmd := d.Update(EventMsg{Record: events.Record{
		Type:    events.RaffleEnded,
		Time:    time.Now(),
		Summary: "raffle 7F-SOL-042 ended with 4 tickets sold",
	}})
	assert.Nil(t, cmd)

	assert.Equal(t, 2, d.feed.Len())
	rows := d.table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "ended", rows[0][0])
	assert.Contains(t, d.View(), "ended with 4 tickets sold")
}

func TestDashboardKeys(t *testing.T) {
	d, _ := newTestDashboard()

	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, paneEvents, d.focus)
	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, paneLogs, d.focus)

	d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	assert.False(t, d.logs.IsVisible())
	assert.Equal(t, paneRaffles, d.focus)
	assert.NotContains(t, d.View(), "Cycle completed")

	d.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.True(t, d.logs.Filter().ShowDebug)

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestDashboardHeaderShowsFailure(t *testing.T) {
	d, mon := newTestDashboard()
	mon.snap.LastError = "ledger connectivity failure"

	d.Update(SnapshotMsg{Snapshot: mon.snap})
	assert.True(t, strings.Contains(d.View(), "cycle #3 failed"))
}
