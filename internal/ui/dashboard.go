package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui/component"
)

// SnapshotSource is the read side of the monitor.
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

// FeedSource returns recent events, newest first.
type FeedSource interface {
	Recent(limit int) []events.Record
}

// Options configures the dashboard
type Options struct {
	Monitor  SnapshotSource
	Feed     FeedSource
	Logs     component.LogSource
	Updates  <-chan tea.Msg
	Interval time.Duration
}

type pane int

const (
	paneRaffles pane = iota
	paneEvents
	paneLogs
)

// Dashboard is the root tea.Model of the terminal UI
type Dashboard struct {
	opts   Options
	keys   KeyMap
	header *component.StatusHeader
	table  *component.RaffleTable
	feed   *component.EventFeed
	logs   *component.CompactLogViewer
	help   *component.HelpBar
	focus  pane
	width  int
	height int
}

// NewDashboard creates the dashboard model
func NewDashboard(opts Options) *Dashboard {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	keys := DefaultKeyMap()
	d := &Dashboard{
		opts:   opts,
		keys:   keys,
		header: component.NewStatusHeader(),
		table:  component.NewRaffleTable(),
		feed:   component.NewEventFeed(100),
		logs:   component.NewCompactLogViewer(opts.Logs),
		help:   component.NewHelpBar(keys.ShortHelp(), keys.FullHelp()),
	}
	if opts.Feed != nil {
		d.feed.Seed(opts.Feed.Recent(100))
	}
	d.setFocus(paneRaffles)
	d.refresh()
	return d
}

// Init starts snapshot polling and the update listener
func (d *Dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(d.opts.Interval)}
	if d.opts.Updates != nil {
		cmds = append(cmds, ListenUpdates(d.opts.Updates))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.layout()
		return d, nil

	case tickMsg:
		d.refresh()
		return d, tick(d.opts.Interval)

	case SnapshotMsg:
		d.applySnapshot(msg.Snapshot)
		return d, nil

	case EventMsg:
		d.feed.Push(msg.Record)
		if d.opts.Monitor != nil {
			d.applySnapshot(d.opts.Monitor.Snapshot())
		}
		if d.opts.Updates == nil {
			return d, nil
		}
		return d, ListenUpdates(d.opts.Updates)

	case tea.KeyMsg:
		return d, d.handleKey(msg)
	}
	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return tea.Quit
	case key.Matches(msg, d.keys.Help):
		d.help.ToggleAll()
		d.layout()
	case key.Matches(msg, d.keys.Tab):
		next := (d.focus + 1) % 3
		if next == paneLogs && !d.logs.IsVisible() {
			next = paneRaffles
		}
		d.setFocus(next)
	case key.Matches(msg, d.keys.Refresh):
		d.refresh()
	case key.Matches(msg, d.keys.ToggleLogs):
		d.logs.SetVisible(!d.logs.IsVisible())
		if d.focus == paneLogs {
			d.setFocus(paneRaffles)
		}
		d.layout()
	case key.Matches(msg, d.keys.FilterDebug):
		d.logs.ToggleLogLevel("debug")
	case key.Matches(msg, d.keys.FilterInfo):
		d.logs.ToggleLogLevel("info")
	case key.Matches(msg, d.keys.FilterWarn):
		d.logs.ToggleLogLevel("warning")
	case key.Matches(msg, d.keys.FilterError):
		d.logs.ToggleLogLevel("error")
	default:
		switch d.focus {
		case paneRaffles:
			return d.table.Update(msg)
		case paneEvents:
			return d.feed.Update(msg)
		case paneLogs:
			return d.logs.Update(msg)
		}
	}
	return nil
}

func (d *Dashboard) setFocus(p pane) {
	d.focus = p
	d.table.SetFocused(p == paneRaffles)
	d.feed.SetFocused(p == paneEvents)
	d.logs.SetFocused(p == paneLogs)
}

func (d *Dashboard) refresh() {
	if d.opts.Monitor != nil {
		d.applySnapshot(d.opts.Monitor.Snapshot())
	}
	d.logs.Refresh()
}

func (d *Dashboard) applySnapshot(s monitor.Snapshot) {
	d.header.SetSnapshot(s)
	d.table.SetSnapshot(s)
}

// layout splits the height between the panes
func (d *Dashboard) layout() {
	if d.width == 0 || d.height == 0 {
		return
	}
	d.header.SetWidth(d.width)
	d.help.SetWidth(d.width)

	free := d.height - d.header.GetHeight() - lipgloss.Height(d.help.View())
	tableHeight := max(free/3, 5)
	rest := max(free-tableHeight, 4)

	d.table.SetSize(d.width, tableHeight)
	if d.logs.IsVisible() {
		d.feed.SetSize(d.width, rest/2)
		d.logs.SetSize(d.width, rest-rest/2)
	} else {
		d.feed.SetSize(d.width, rest)
	}
	d.logs.Refresh()
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 || d.height == 0 {
		return "Initializing..."
	}

	parts := []string{d.header.View(), d.table.View(), d.feed.View()}
	if d.logs.IsVisible() {
		parts = append(parts, d.logs.View())
	}
	parts = append(parts, d.help.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
