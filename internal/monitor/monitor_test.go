package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/parser"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testProgram = "GUXx1x2kMBxJwLmyxWJMaWAqMhJHx7zabDqHdv7AFFLE"

var start = time.Unix(1_700_000_000, 0)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeLedger struct {
	mu       sync.Mutex
	sigs     []blockchain.SignatureInfo // newest first
	txs      map[string]*blockchain.Transaction
	listErr  error
	fetchErr map[string]error
	fetches  map[string]int
	lists    int
	onList   func()
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		txs:      make(map[string]*blockchain.Transaction),
		fetchErr: make(map[string]error),
		fetches:  make(map[string]int),
	}
}

// add lists a signature and stores its transaction.
func (f *fakeLedger) add(sig string, at time.Time, logs ...string) *blockchain.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()

	bt := at.Unix()
	f.sigs = append([]blockchain.SignatureInfo{{Signature: sig, BlockTime: &bt}}, f.sigs...)
	tx := &blockchain.Transaction{Signature: sig, BlockTime: &bt, LogMessages: logs}
	f.txs[sig] = tx
	return tx
}

func (f *fakeLedger) fetchCount(sig string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[sig]
}

func (f *fakeLedger) ListRecentSignatures(_ context.Context, program string, limit int) ([]blockchain.SignatureInfo, error) {
	if f.onList != nil {
		f.onList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if program != testProgram {
		return nil, fmt.Errorf("unexpected program %s", program)
	}
	out := make([]blockchain.SignatureInfo, 0, limit)
	for i := 0; i < len(f.sigs) && i < limit; i++ {
		out = append(out, f.sigs[i])
	}
	return out, nil
}

func (f *fakeLedger) GetTransaction(_ context.Context, sig string) (*blockchain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches[sig]++
	if err := f.fetchErr[sig]; err != nil {
		return nil, err
	}
	tx, ok := f.txs[sig]
	if !ok {
		return nil, blockchain.ErrTransactionNotFound
	}
	return tx, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	msgErr   error
}

func (r *recordingNotifier) SendMessage(_ context.Context, text string, _ notify.ParseMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.msgErr != nil {
		return r.msgErr
	}
	r.messages = append(r.messages, text)
	return nil
}

func (r *recordingNotifier) SendMedia(_ context.Context, path, caption string, _ notify.ParseMode) error {
	return notify.ErrMediaUnavailable
}

func (r *recordingNotifier) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recordingNotifier) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgErr = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type() == t {
			n++
		}
	}
	return n
}

func testConfig() Config {
	return Config{
		ProgramID:              testProgram,
		Network:                "devnet",
		PollInterval:           time.Minute,
		Lookback:               5 * time.Minute,
		SignatureLimit:         100,
		MaxProcessedSignatures: 1000,
		MaxKnownAnnouncements:  1000,
		EndedGrace:             10 * time.Minute,
		FetchConcurrency:       4,
		Extraction:             parser.DefaultSettings(),
	}
}

type harness struct {
	m        *Monitor
	ledger   *fakeLedger
	notifier *recordingNotifier
	clock    *clock
	events   *recordingPublisher
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		ledger:   newFakeLedger(),
		notifier: &recordingNotifier{},
		clock:    newClock(start),
		events:   &recordingPublisher{},
	}
	m, err := New(cfg, h.ledger, h.notifier, zap.NewNop(),
		WithClock(h.clock.now),
		WithEvents(h.events),
		WithExtractorOptions(parser.WithPicker(func(int) int { return 0 })))
	require.NoError(t, err)
	h.m = m
	return h
}

func creationLogs(name, id string, extra ...string) []string {
	logs := []string{
		"Program log: Instruction: InitializeRaffle",
		fmt.Sprintf("Program log: Raffle '%s' (ID: %s) initialized", name, id),
	}
	return append(logs, extra...)
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Lookback = cfg.PollInterval

	_, err := New(cfg, newFakeLedger(), &recordingNotifier{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookback")

	cfg = testConfig()
	cfg.ProgramID = ""
	_, err = New(cfg, newFakeLedger(), &recordingNotifier{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunCycleAnnouncesCreationOnce(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.add("sigCreate", start.Add(-30*time.Second),
		creationLogs("Summer Splash", "7F-SOL-042", "Program log: ticket_price: 75000000")...)

	require.NoError(t, h.m.RunCycle(context.Background()))

	sent := h.notifier.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Summer Splash")
	assert.Contains(t, sent[0], "7F-SOL-042")

	r, ok := h.m.Registry().Active("7F-SOL-042")
	require.True(t, ok)
	assert.Equal(t, uint64(75_000_000), r.TicketPrice)

	// the next window still covers the signature
	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))

	assert.Len(t, h.notifier.sent(), 1)
	assert.Equal(t, 1, h.ledger.fetchCount("sigCreate"))
	assert.Equal(t, 1, h.events.count(events.RaffleCreated))
}

func TestRunCycleWindow(t *testing.T) {
	h := newHarness(t, testConfig())
	// first window is [start-10m, start)
	h.ledger.add("tooOld", start.Add(-11*time.Minute), "Program log: noop")
	h.ledger.add("atEnd", start, "Program log: noop")
	h.ledger.add("inside", start.Add(-9*time.Minute), "Program log: noop")

	h.ledger.mu.Lock()
	h.ledger.sigs = append(h.ledger.sigs, blockchain.SignatureInfo{Signature: "noTime"})
	h.ledger.txs["noTime"] = &blockchain.Transaction{Signature: "noTime"}
	h.ledger.mu.Unlock()

	require.NoError(t, h.m.RunCycle(context.Background()))

	assert.Zero(t, h.ledger.fetchCount("tooOld"))
	assert.Zero(t, h.ledger.fetchCount("atEnd"))
	assert.Equal(t, 1, h.ledger.fetchCount("inside"))
	assert.Equal(t, 1, h.ledger.fetchCount("noTime"))

	snap := h.m.Snapshot()
	assert.Equal(t, start.Add(-10*time.Minute), snap.WindowStart)
	assert.Equal(t, start, snap.WindowEnd)
	assert.Equal(t, 4, snap.Listed)
	assert.Equal(t, 2, snap.New)
	assert.Equal(t, 2, snap.Processed)
}

func TestRunCycleProcessesOldestFirst(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.add("first", start.Add(-3*time.Minute), creationLogs("Alpha", "7F-SOL-001")...)
	h.ledger.add("second", start.Add(-2*time.Minute), creationLogs("Beta", "7F-SOL-002")...)

	require.NoError(t, h.m.RunCycle(context.Background()))

	sent := h.notifier.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "Alpha")
	assert.Contains(t, sent[1], "Beta")
}

func TestRunCycleLifecycle(t *testing.T) {
	h := newHarness(t, testConfig())
	end := start.Add(30 * time.Second)
	h.ledger.add("sigCreate", start.Add(-time.Minute),
		creationLogs("Short", "7F-SOL-010", fmt.Sprintf("Program log: ends at %d", end.Unix()))...)

	ctx := context.Background()
	require.NoError(t, h.m.RunCycle(ctx))
	_, ok := h.m.Registry().Active("7F-SOL-010")
	require.True(t, ok)

	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(ctx))

	_, ok = h.m.Registry().Active("7F-SOL-010")
	assert.False(t, ok)
	ended, ok := h.m.Registry().Ended("7F-SOL-010")
	require.True(t, ok)
	assert.Equal(t, end.Add(10*time.Minute).Unix(), ended.Deadline)
	assert.Equal(t, 1, h.events.count(events.RaffleEnded))

	h.clock.advance(10 * time.Minute)
	require.NoError(t, h.m.RunCycle(ctx))

	_, ok = h.m.Registry().Ended("7F-SOL-010")
	assert.False(t, ok)
	assert.Equal(t, 1, h.events.count(events.RaffleCollected))
}

func TestRunCycleAttributesWinnerToRecentlyEnded(t *testing.T) {
	h := newHarness(t, testConfig())
	h.m.Registry().Track(raffle.Raffle{
		ID:          "7F-SOL-042",
		Name:        "Summer Splash",
		Description: "Beach party",
		TicketPrice: 100_000_000,
		TicketsSold: 10,
		EndTime:     start.Add(-120 * time.Second).Unix(),
	})
	h.ledger.add("sigDraw", start.Add(-30*time.Second), "Program log: Instruction: DrawWinner")

	require.NoError(t, h.m.RunCycle(context.Background()))

	sent := h.notifier.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "7F-SOL-042")
	assert.Contains(t, sent[0], "Summer Splash")
	assert.Contains(t, sent[0], "Beach party")
	assert.Contains(t, sent[0], "0.95 SOL CLAIMED")
	assert.Equal(t, 1, h.events.count(events.WinnerAnnounced))

	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.Len(t, h.notifier.sent(), 1)
}

func TestRunCycleUnattributedWinner(t *testing.T) {
	t.Run("announced when enabled", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.ledger.add("5WinnerSignature", start.Add(-time.Minute), "Program log: Instruction: DrawWinner")

		require.NoError(t, h.m.RunCycle(context.Background()))

		sent := h.notifier.sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "UNATTRIBUTED-5WinnerS")
	})

	t.Run("dropped when disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Extraction.SynthesizeIDs = false
		h := newHarness(t, cfg)
		h.ledger.add("5WinnerSignature", start.Add(-time.Minute), "Program log: Instruction: DrawWinner")

		require.NoError(t, h.m.RunCycle(context.Background()))

		assert.Empty(t, h.notifier.sent())
		assert.True(t, h.m.state.Processed.Has("5WinnerSignature"))
	})
}

func TestRunCycleDispatchFailureIsNotRetried(t *testing.T) {
	h := newHarness(t, testConfig())
	h.notifier.fail(errors.New("telegram down"))
	h.ledger.add("sigCreate", start.Add(-30*time.Second), creationLogs("Lost", "7F-SOL-500")...)

	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.Empty(t, h.notifier.sent())
	assert.Equal(t, 1, h.m.Journal().Stats().Failed)
	assert.Equal(t, 1, h.events.count(events.AnnouncementFailed))

	h.notifier.fail(nil)
	// forget the signature so the transaction is processed again
	h.m.state.Processed.Prune(0)
	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))

	assert.Equal(t, 2, h.ledger.fetchCount("sigCreate"))
	assert.Empty(t, h.notifier.sent())
}

func TestRunCycleConnectivityFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.add("sigCreate", start.Add(-30*time.Second), creationLogs("Retry", "7F-SOL-600")...)
	h.ledger.listErr = errors.New("connection refused")

	err := h.m.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, blockchain.ErrConnectivity)
	assert.False(t, h.m.state.Processed.Has("sigCreate"))
	assert.Equal(t, start, h.m.state.LastCycleEnd)
	assert.Equal(t, 1, h.events.count(events.CycleFailed))
	assert.NotEmpty(t, h.m.Snapshot().LastError)

	h.ledger.listErr = nil
	h.ledger.fetchErr["sigCreate"] = fmt.Errorf("%w: timeout", blockchain.ErrConnectivity)
	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.False(t, h.m.state.Processed.Has("sigCreate"))
	assert.Empty(t, h.notifier.sent())

	delete(h.ledger.fetchErr, "sigCreate")
	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.True(t, h.m.state.Processed.Has("sigCreate"))
	assert.Len(t, h.notifier.sent(), 1)
}

func TestRunCycleRetriesMissingTransaction(t *testing.T) {
	h := newHarness(t, testConfig())
	tx := h.ledger.add("sigLate", start.Add(-30*time.Second), creationLogs("Late", "7F-SOL-700")...)
	delete(h.ledger.txs, "sigLate")

	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.False(t, h.m.state.Processed.Has("sigLate"))

	h.ledger.txs["sigLate"] = tx
	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))

	assert.True(t, h.m.state.Processed.Has("sigLate"))
	assert.Len(t, h.notifier.sent(), 1)
}

func TestRunCycleMarksRevertedProcessed(t *testing.T) {
	h := newHarness(t, testConfig())
	tx := h.ledger.add("sigReverted", start.Add(-time.Minute), creationLogs("Reverted", "7F-SOL-800")...)
	tx.Failed = true

	h.ledger.add("sigListedFailed", start.Add(-2*time.Minute), creationLogs("Failed", "7F-SOL-801")...)
	for i := range h.ledger.sigs {
		h.ledger.sigs[i].Failed = h.ledger.sigs[i].Signature == "sigListedFailed"
	}

	require.NoError(t, h.m.RunCycle(context.Background()))

	assert.Empty(t, h.notifier.sent())
	assert.True(t, h.m.state.Processed.Has("sigReverted"))
	assert.True(t, h.m.state.Processed.Has("sigListedFailed"))
	assert.Zero(t, h.ledger.fetchCount("sigListedFailed"))
	_, ok := h.m.Registry().Active("7F-SOL-800")
	assert.False(t, ok)
}

func TestRunCycleMarksUndecodableProcessed(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.add("sigGarbled", start.Add(-time.Minute), creationLogs("Garbled", "7F-SOL-850")...)
	h.ledger.fetchErr["sigGarbled"] = fmt.Errorf("%w: short buffer", blockchain.ErrUndecodable)

	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.True(t, h.m.state.Processed.Has("sigGarbled"))

	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))

	assert.Equal(t, 1, h.ledger.fetchCount("sigGarbled"))
	assert.Empty(t, h.notifier.sent())
}

func TestRunCycleTagsLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ledger := newFakeLedger()
	ledger.add("sigTagged", start.Add(-time.Minute), creationLogs("Tagged", "7F-SOL-860")...)

	m, err := New(testConfig(), ledger, &recordingNotifier{}, zap.New(core), WithClock(newClock(start).now))
	require.NoError(t, err)
	require.NoError(t, m.RunCycle(context.Background()))

	extracted := logs.FilterMessage("Creation extracted").All()
	require.Len(t, extracted, 1)
	fields := extracted[0].ContextMap()
	assert.Equal(t, "cycle", fields["operation"])
	assert.Equal(t, "sigTagged", fields["signature"])
	assert.Equal(t, "7F-SOL-860", fields["raffle_id"])

	completed := logs.FilterMessage("Cycle completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, fields["correlation_id"], completed[0].ContextMap()["correlation_id"])
}

func TestSnapshotCarriesBusStats(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 8)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	m, err := New(testConfig(), newFakeLedger(), &recordingNotifier{}, zap.NewNop(),
		WithClock(newClock(start).now), WithEvents(bus))
	require.NoError(t, err)
	require.NoError(t, m.RunCycle(context.Background()))

	snap := m.Snapshot()
	require.NotNil(t, snap.Events)
	assert.Equal(t, 8, snap.Events.BufferSize)
	assert.NotContains(t, m.StatusText(), "Dropped events")

	h := newHarness(t, testConfig())
	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.Nil(t, h.m.Snapshot().Events)
}

func TestRunCycleRecordsPurchases(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.add("sigCreate", start.Add(-2*time.Minute), creationLogs("Buyable", "7F-SOL-900")...)
	h.ledger.add("sigBuy", start.Add(-time.Minute),
		"Program log: Instruction: BuyTicket",
		"Program log: Ticket #1 purchased by 4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		"Program log: Ticket #2 purchased by 4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	require.NoError(t, h.m.RunCycle(context.Background()))

	r, ok := h.m.Registry().Active("7F-SOL-900")
	require.True(t, ok)
	assert.Equal(t, 2, r.TicketsSold)
	assert.Equal(t, 1, h.events.count(events.PurchaseObserved))
	assert.Len(t, h.notifier.sent(), 1)
}

func TestRunCyclePrunesProcessedSet(t *testing.T) {
	cfg := testConfig()
	cfg.MaxProcessedSignatures = 2
	h := newHarness(t, cfg)
	h.ledger.add("a", start.Add(-3*time.Minute), creationLogs("A", "7F-SOL-00A")...)
	h.ledger.add("b", start.Add(-2*time.Minute), "Program log: noop")
	h.ledger.add("c", start.Add(-time.Minute), "Program log: noop")

	require.NoError(t, h.m.RunCycle(context.Background()))
	assert.Equal(t, 3, h.m.state.Processed.Len())

	h.clock.advance(time.Minute)
	require.NoError(t, h.m.RunCycle(context.Background()))

	// "a" was the oldest, got forgotten and fetched again but not re-announced
	assert.Equal(t, 2, h.ledger.fetchCount("a"))
	assert.Equal(t, 1, h.ledger.fetchCount("b"))
	assert.Len(t, h.notifier.sent(), 1)
}

func TestRunCycleRecoversPanic(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.onList = func() { panic("boom") }

	err := h.m.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrCyclePanic)

	h.ledger.onList = nil
	assert.NoError(t, h.m.RunCycle(context.Background()))
}

func TestRunCycleRejectsOverlap(t *testing.T) {
	h := newHarness(t, testConfig())
	entered := make(chan struct{})
	release := make(chan struct{})
	h.ledger.onList = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() { done <- h.m.RunCycle(context.Background()) }()
	<-entered

	assert.ErrorIs(t, h.m.RunCycle(context.Background()), ErrCycleInProgress)

	close(release)
	assert.NoError(t, <-done)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.Lookback = time.Second

	ledger := newFakeLedger()
	m, err := New(cfg, ledger, &recordingNotifier{}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return ledger.lists >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunKeepsPollingAfterFailure(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.Lookback = time.Second

	ledger := newFakeLedger()
	ledger.listErr = errors.New("node unavailable")
	m, err := New(cfg, ledger, &recordingNotifier{}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	assert.Eventually(t, func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return ledger.lists >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStatusText(t *testing.T) {
	h := newHarness(t, testConfig())
	h.ledger.add("sigCreate", start.Add(-30*time.Second), creationLogs("Status_Check", "7F-SOL-321")...)

	require.NoError(t, h.m.RunCycle(context.Background()))

	text := h.m.StatusText()
	assert.Contains(t, text, "*Network:* devnet")
	assert.Contains(t, text, "*Active raffles:* 1")
	assert.Contains(t, text, `Status\_Check`)
	assert.Contains(t, text, "1 delivered, 0 failed")
	assert.True(t, strings.HasPrefix(text, "📊"))

	snap := h.m.Snapshot()
	assert.Equal(t, uint64(1), snap.Cycles)
	assert.Equal(t, 1, snap.KnownRaffles)
}
