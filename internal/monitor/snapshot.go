// internal/monitor/snapshot.go
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
)

// Snapshot is a read-only view of the monitor taken at the end of a cycle.
type Snapshot struct {
	ProgramID     string               `json:"program_id"`
	Network       string               `json:"network"`
	Cycles        uint64               `json:"cycles"`
	CycleID       string               `json:"cycle_id,omitempty"`
	WindowStart   time.Time            `json:"window_start"`
	WindowEnd     time.Time            `json:"window_end"`
	LastCycleAt   time.Time            `json:"last_cycle_at"`
	LastDuration  time.Duration        `json:"last_duration"`
	LastError     string               `json:"last_error,omitempty"`
	Listed        int                  `json:"listed"`
	New           int                  `json:"new"`
	Processed     int                  `json:"processed"`
	Active        []raffle.Raffle      `json:"active"`
	Ended         []raffle.EndedRaffle `json:"ended"`
	ProcessedSet  int                  `json:"processed_signatures"`
	KnownRaffles  int                  `json:"known_raffles"`
	KnownWinners  int                  `json:"known_winners"`
	Announcements JournalStats         `json:"announcements"`
	Events        *events.Stats        `json:"events,omitempty"`
}

// statsReporter is implemented by publishers that keep counters, such as
// *events.Bus.
type statsReporter interface {
	Stats() events.Stats
}

func (m *Monitor) publishSnapshot(report cycleReport) {
	s := &Snapshot{
		ProgramID:     m.cfg.ProgramID,
		Network:       m.cfg.Network,
		Cycles:        m.cycles.Load(),
		CycleID:       report.id,
		WindowStart:   report.windowStart,
		WindowEnd:     report.windowEnd,
		LastCycleAt:   report.startedAt,
		LastDuration:  report.duration,
		Listed:        report.listed,
		New:           report.fresh,
		Processed:     report.processed,
		Active:        m.state.Registry.ActiveRaffles(),
		Ended:         m.state.Registry.EndedRaffles(),
		ProcessedSet:  m.state.Processed.Len(),
		KnownRaffles:  m.state.KnownRaffles.Len(),
		KnownWinners:  m.state.KnownWinners.Len(),
		Announcements: m.journal.Stats(),
	}
	if report.err != nil {
		s.LastError = report.err.Error()
	}
	if sr, ok := m.events.(statsReporter); ok {
		stats := sr.Stats()
		s.Events = &stats
	}
	m.snapshot.Store(s)
}

// Snapshot returns the state published by the last finished cycle.
func (m *Monitor) Snapshot() Snapshot {
	return *m.snapshot.Load()
}

// StatusText renders the snapshot for the /status chat command.
func (m *Monitor) StatusText() string {
	s := m.Snapshot()

	var b strings.Builder
	b.WriteString("📊 *Monitor status*\n\n")
	fmt.Fprintf(&b, "*Network:* %s\n", s.Network)
	fmt.Fprintf(&b, "*Cycles:* %d\n", s.Cycles)
	if !s.LastCycleAt.IsZero() {
		fmt.Fprintf(&b, "*Last cycle:* %s (%s)\n",
			s.LastCycleAt.UTC().Format("15:04:05 MST"), s.LastDuration.Round(time.Millisecond))
	}
	if s.LastError != "" {
		fmt.Fprintf(&b, "*Last error:* %s\n", notify.EscapeMarkdown(s.LastError))
	}
	fmt.Fprintf(&b, "*Active raffles:* %d\n", len(s.Active))
	for _, r := range s.Active {
		fmt.Fprintf(&b, "  • %s `%s` ends %s\n",
			notify.EscapeMarkdown(r.Name), r.ID, time.Unix(r.EndTime, 0).UTC().Format("Jan 2 15:04 MST"))
	}
	fmt.Fprintf(&b, "*Awaiting winner:* %d\n", len(s.Ended))
	fmt.Fprintf(&b, "*Announcements:* %d delivered, %d failed\n",
		s.Announcements.Delivered, s.Announcements.Failed)
	if s.Events != nil && s.Events.Dropped > 0 {
		fmt.Fprintf(&b, "*Dropped events:* %d\n", s.Events.Dropped)
	}
	return b.String()
}
