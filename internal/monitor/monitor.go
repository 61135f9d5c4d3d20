// internal/monitor/monitor.go
package monitor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/metrics"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/parser"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
	"github.com/rovshanmuradov/raffle-monitor/internal/storage"
	"go.uber.org/zap"
)

// ErrCycleInProgress is returned when RunCycle is called while another
// cycle of the same monitor is running.
var ErrCycleInProgress = errors.New("cycle already in progress")

// ErrCyclePanic wraps a panic recovered inside a cycle.
var ErrCyclePanic = errors.New("cycle panicked")

// Config holds the tunables of one monitor instance.
type Config struct {
	ProgramID    string
	Network      string
	PollInterval time.Duration
	// Lookback must exceed PollInterval so delayed cycles overlap.
	Lookback               time.Duration
	SignatureLimit         int
	MaxProcessedSignatures int
	MaxKnownAnnouncements  int
	EndedGrace             time.Duration
	FetchConcurrency       int
	// RequestTimeout bounds each ledger call, SendTimeout each notification.
	RequestTimeout time.Duration
	SendTimeout    time.Duration
	VideoPath      string
	Extraction     parser.Settings
}

func (c Config) validate() error {
	switch {
	case c.ProgramID == "":
		return errors.New("program id is required")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be positive")
	case c.Lookback <= c.PollInterval:
		return fmt.Errorf("lookback %s must exceed poll interval %s", c.Lookback, c.PollInterval)
	case c.SignatureLimit <= 0:
		return errors.New("signature limit must be positive")
	case c.MaxProcessedSignatures <= 0 || c.MaxKnownAnnouncements <= 0:
		return errors.New("set caps must be positive")
	}
	return nil
}

// State is everything one monitor remembers between cycles. It is owned by
// a single Monitor; the cycle is its only writer.
type State struct {
	Registry     *raffle.Registry
	Processed    *storage.BoundedSet
	KnownRaffles *storage.BoundedSet
	KnownWinners *storage.BoundedSet
	LastCycleEnd time.Time
}

// NewState creates empty state whose first window reaches one lookback
// before start.
func NewState(grace time.Duration, start time.Time, lookback time.Duration) *State {
	return &State{
		Registry:     raffle.NewRegistry(grace),
		Processed:    storage.NewBoundedSet(),
		KnownRaffles: storage.NewBoundedSet(),
		KnownWinners: storage.NewBoundedSet(),
		LastCycleEnd: start.Add(-lookback),
	}
}

// Monitor watches one program and announces its raffle events.
type Monitor struct {
	cfg        Config
	ledger     blockchain.Ledger
	extractor  *parser.Extractor
	dispatcher *Dispatcher
	state      *State
	journal    *Journal
	events     events.Publisher
	metrics    *metrics.Collector
	now        func() time.Time
	logger     *zap.Logger

	running  atomic.Bool
	cycles   atomic.Uint64
	snapshot atomic.Pointer[Snapshot]
}

// Option настраивает Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithEvents publishes domain events to p.
func WithEvents(p events.Publisher) Option {
	return func(m *Monitor) { m.events = p }
}

// WithMetrics records cycle metrics into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Monitor) { m.metrics = c }
}

// WithJournal records every announcement into j.
func WithJournal(j *Journal) Option {
	return func(m *Monitor) { m.journal = j }
}

// WithExtractorOptions passes options to the extractor.
func WithExtractorOptions(opts ...parser.Option) Option {
	return func(m *Monitor) {
		m.extractor = parser.NewExtractor(m.cfg.Extraction, opts...)
	}
}

// New creates a monitor reading from ledger and announcing through notifier.
func New(cfg Config, ledger blockchain.Ledger, notifier notify.Notifier, logger *zap.Logger, opts ...Option) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	m := &Monitor{
		cfg:    cfg,
		ledger: ledger,
		events: events.Discard,
		now:    time.Now,
		logger: logger.Named("monitor").With(zap.String("program_id", cfg.ProgramID)),
	}
	m.extractor = parser.NewExtractor(cfg.Extraction)
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.NewCollector()
	}
	if m.journal == nil {
		m.journal, _ = NewJournal("", 100, logger)
	}

	m.state = NewState(cfg.EndedGrace, m.now(), cfg.Lookback)
	m.dispatcher = NewDispatcher(notifier, DispatcherConfig{
		KnownRaffles: m.state.KnownRaffles,
		KnownWinners: m.state.KnownWinners,
		VideoPath:    cfg.VideoPath,
		Timeout:      cfg.SendTimeout,
		Journal:      m.journal,
		Metrics:      m.metrics,
		Events:       m.events,
		Now:          m.now,
	}, m.logger)

	m.publishSnapshot(cycleReport{})
	return m, nil
}

// Registry exposes lifecycle state for read-only consumers.
func (m *Monitor) Registry() *raffle.Registry {
	return m.state.Registry
}

// Journal returns the announcement journal.
func (m *Monitor) Journal() *Journal {
	return m.journal
}

// Config returns the monitor configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}
