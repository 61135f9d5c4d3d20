// internal/monitor/cycle.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/logger"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Transaction kinds recorded besides the classifier kinds.
const (
	kindReverted = "reverted"
	kindDropped  = "dropped"
	// payload the node returned but nothing can parse
	kindUndecodable = "undecodable"
)

// cycleReport is what one cycle observed.
type cycleReport struct {
	id          string
	windowStart time.Time
	windowEnd   time.Time
	listed      int
	fresh       int
	processed   int
	startedAt   time.Time
	duration    time.Duration
	err         error
}

type fetchResult struct {
	tx  *blockchain.Transaction
	err error
}

// RunCycle runs one full poll cycle: prune, expire, list, dedupe, fetch,
// classify, extract, track and announce. Only one cycle runs at a time.
func (m *Monitor) RunCycle(ctx context.Context) (err error) {
	if !m.running.CompareAndSwap(false, true) {
		return ErrCycleInProgress
	}
	defer m.running.Store(false)

	report := cycleReport{id: uuid.New().String(), startedAt: m.now()}
	log := logger.WithOperation(m.logger, "cycle", report.id)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
			log.Error("Recovered from panic in cycle", zap.Any("panic", r), zap.Stack("stack"))
		}
		report.err = err
		report.duration = m.now().Sub(report.startedAt)
		m.finishCycle(ctx, log, report)
	}()

	return m.cycle(ctx, log, &report)
}

func (m *Monitor) cycle(ctx context.Context, log *zap.Logger, report *cycleReport) error {
	st := m.state

	st.Processed.Prune(m.cfg.MaxProcessedSignatures)
	st.KnownRaffles.Prune(m.cfg.MaxKnownAnnouncements)
	st.KnownWinners.Prune(m.cfg.MaxKnownAnnouncements)

	now := report.startedAt
	if st.LastCycleEnd.IsZero() {
		st.LastCycleEnd = now.Add(-m.cfg.Lookback)
	}
	report.windowStart = st.LastCycleEnd.Add(-m.cfg.Lookback)
	report.windowEnd = now
	// Window advances even when the rest of the cycle fails.
	st.LastCycleEnd = now

	m.advanceLifecycle(now, log)

	listCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	sigs, err := m.ledger.ListRecentSignatures(listCtx, m.cfg.ProgramID, m.cfg.SignatureLimit)
	cancel()
	if err != nil {
		if !errors.Is(err, blockchain.ErrConnectivity) {
			err = fmt.Errorf("%w: %w", blockchain.ErrConnectivity, err)
		}
		return fmt.Errorf("failed to list signatures: %w", err)
	}
	report.listed = len(sigs)

	candidates := m.candidates(sigs, report.windowStart, report.windowEnd, log)
	report.fresh = len(candidates)
	if len(candidates) == 0 {
		log.Debug("No new signatures in window", zap.Int("listed", report.listed))
		return nil
	}

	results := m.prefetch(ctx, candidates)

	for i, sig := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		txLog := logger.WithSignature(log, sig)
		res := results[i]
		switch {
		case errors.Is(res.err, blockchain.ErrTransactionNotFound):
			txLog.Debug("Transaction not available yet, will retry")
			continue
		case errors.Is(res.err, blockchain.ErrUndecodable):
			txLog.Warn("Transaction cannot be decoded, skipping", zap.Error(res.err))
			m.metrics.RecordTransaction(kindUndecodable)
		case res.err != nil:
			txLog.Warn("Failed to fetch transaction", zap.Error(res.err))
			continue
		case res.tx.Failed:
			txLog.Debug("Skipping reverted transaction")
			m.metrics.RecordTransaction(kindReverted)
		default:
			m.processTransaction(ctx, res.tx, txLog)
		}
		st.Processed.Add(sig)
		report.processed++
	}
	return nil
}

// candidates returns the in-window signatures not yet processed, oldest first.
// Entries the listing already reports as failed are marked processed here.
func (m *Monitor) candidates(sigs []blockchain.SignatureInfo, start, end time.Time, log *zap.Logger) []string {
	out := make([]string, 0, len(sigs))
	for _, info := range sigs {
		if info.BlockTime != nil {
			bt := time.Unix(*info.BlockTime, 0)
			if bt.Before(start) || !bt.Before(end) {
				continue
			}
		}
		if m.state.Processed.Has(info.Signature) {
			continue
		}
		if info.Failed {
			log.Debug("Skipping failed signature", zap.String("signature", info.Signature))
			m.state.Processed.Add(info.Signature)
			m.metrics.RecordTransaction(kindReverted)
			continue
		}
		out = append(out, info.Signature)
	}
	// listing is newest first
	slices.Reverse(out)
	return out
}

// prefetch fetches transaction details with bounded concurrency. Results are
// indexed like sigs so processing order stays deterministic.
func (m *Monitor) prefetch(ctx context.Context, sigs []string) []fetchResult {
	results := make([]fetchResult, len(sigs))

	var g errgroup.Group
	g.SetLimit(m.cfg.FetchConcurrency)
	for i, sig := range sigs {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
			defer cancel()
			tx, err := m.ledger.GetTransaction(fetchCtx, sig)
			if err == nil && tx == nil {
				err = blockchain.ErrTransactionNotFound
			}
			results[i] = fetchResult{tx: tx, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// advanceLifecycle moves finished raffles to the ended tracker and drops
// ended entries past their deadline.
func (m *Monitor) advanceLifecycle(now time.Time, log *zap.Logger) {
	for _, e := range m.state.Registry.Expire(now) {
		log.Info("Raffle ended",
			zap.String("raffle_id", e.ID),
			zap.String("raffle_name", e.Name),
			zap.Int("tickets_sold", e.TicketsSold))
		m.publish(events.RaffleEndedEvent{
			BaseEvent:   events.NewBase(events.RaffleEnded, now),
			RaffleID:    e.ID,
			Name:        e.Name,
			TicketsSold: e.TicketsSold,
			Deadline:    e.Deadline,
		})
	}
	for _, id := range m.state.Registry.Collect(now) {
		log.Debug("Ended raffle dropped", zap.String("raffle_id", id))
		m.publish(events.RaffleCollectedEvent{
			BaseEvent: events.NewBase(events.RaffleCollected, now),
			RaffleID:  id,
		})
	}
}

func (m *Monitor) processTransaction(ctx context.Context, tx *blockchain.Transaction, log *zap.Logger) {
	now := m.now()

	if p, ok := parser.DetectPurchase(tx.LogMessages); ok {
		m.observePurchase(p, tx.Signature, now, log)
	}

	kind := parser.Classify(tx.LogMessages)
	m.metrics.RecordTransaction(kind.String())

	switch kind {
	case parser.Creation:
		m.handleCreation(ctx, tx, now, log)
	case parser.WinnerDrawn:
		m.handleWinner(ctx, tx, now, log)
	default:
		log.Debug("Irrelevant transaction")
	}
}

func (m *Monitor) observePurchase(p parser.Purchase, signature string, now time.Time, log *zap.Logger) {
	id := p.RaffleID
	if id == "" {
		sole, ok := m.state.Registry.SoleActive()
		if !ok {
			log.Debug("Unattributed ticket purchase")
			return
		}
		id = sole.ID
	}
	if !m.state.Registry.RecordPurchase(id, p.Tickets) {
		return
	}
	logger.WithRaffle(log, id).Debug("Ticket purchase observed", zap.Int("tickets", p.Tickets))
	m.publish(events.PurchaseObservedEvent{
		BaseEvent: events.NewBase(events.PurchaseObserved, now),
		RaffleID:  id,
		Tickets:   p.Tickets,
		Signature: signature,
	})
}

func (m *Monitor) handleCreation(ctx context.Context, tx *blockchain.Transaction, now time.Time, log *zap.Logger) {
	ev, ok := m.extractor.ExtractCreation(tx, now)
	if !ok {
		log.Info("Creation transaction without raffle id, dropping")
		m.metrics.RecordTransaction(kindDropped)
		return
	}
	r := ev.Raffle
	log = logger.WithRaffle(log, r.ID)
	log.Debug("Creation extracted", zap.Any("provenance", ev.Provenance))

	if !m.state.Registry.Track(r) {
		log.Debug("Raffle already tracked")
	}
	outcome := m.dispatcher.AnnounceCreation(ctx, r)
	if outcome == OutcomeDuplicate {
		return
	}
	m.publish(events.RaffleCreatedEvent{
		BaseEvent:   events.NewBase(events.RaffleCreated, now),
		RaffleID:    r.ID,
		Name:        r.Name,
		TicketPrice: r.TicketPrice,
		EndTime:     r.EndTime,
		Signature:   tx.Signature,
		Announced:   outcome == OutcomeDelivered,
	})
}

func (m *Monitor) handleWinner(ctx context.Context, tx *blockchain.Transaction, now time.Time, log *zap.Logger) {
	ev, ok := m.extractor.ExtractWinner(tx, m.state.Registry, now)
	if !ok {
		log.Info("Winner transaction could not be attributed, dropping")
		m.metrics.RecordTransaction(kindDropped)
		return
	}
	log = logger.WithRaffle(log, ev.RaffleID)
	if ev.Unattributed {
		log.Warn("Unattributed winner")
	}
	log.Debug("Winner extracted", zap.Any("provenance", ev.Provenance))

	announcement := notify.WinnerAnnouncement{
		RaffleID:     ev.RaffleID,
		RaffleName:   ev.RaffleName,
		Description:  m.describe(ev.RaffleID),
		Winner:       ev.Winner,
		Prize:        ev.Prize,
		TicketNumber: ev.TicketNumber,
		Signature:    tx.Signature,
	}
	if m.dispatcher.AnnounceWinner(ctx, tx.Signature, announcement) != OutcomeDelivered {
		return
	}
	m.publish(events.WinnerAnnouncedEvent{
		BaseEvent:    events.NewBase(events.WinnerAnnounced, now),
		RaffleID:     ev.RaffleID,
		RaffleName:   ev.RaffleName,
		Winner:       ev.Winner,
		Prize:        ev.Prize,
		Signature:    tx.Signature,
		Unattributed: ev.Unattributed,
	})
}

func (m *Monitor) describe(id string) string {
	if e, ok := m.state.Registry.Ended(id); ok {
		return e.Description
	}
	if r, ok := m.state.Registry.Active(id); ok {
		return r.Description
	}
	return ""
}

func (m *Monitor) publish(ev events.Event) {
	if err := m.events.Publish(ev); err != nil {
		m.logger.Debug("Event not published", zap.String("type", string(ev.Type())), zap.Error(err))
	}
}

func (m *Monitor) finishCycle(ctx context.Context, log *zap.Logger, report cycleReport) {
	m.cycles.Add(1)

	active, ended := m.state.Registry.Counts()
	m.metrics.UpdateTracked(active, ended)
	m.metrics.UpdateSetSize("processed", m.state.Processed.Len())
	m.metrics.UpdateSetSize("known_raffles", m.state.KnownRaffles.Len())
	m.metrics.UpdateSetSize("known_winners", m.state.KnownWinners.Len())
	m.metrics.RecordCycle(ctx, report.duration, report.err)

	if report.err != nil {
		log.Error("Cycle failed", zap.Error(report.err))
		m.publish(events.CycleFailedEvent{
			BaseEvent: events.NewBase(events.CycleFailed, m.now()),
			CycleID:   report.id,
			Err:       report.err,
		})
	} else {
		log.Info("Cycle completed",
			zap.Int("listed", report.listed),
			zap.Int("new", report.fresh),
			zap.Int("processed", report.processed),
			zap.Duration("duration", report.duration))
		m.publish(events.CycleCompletedEvent{
			BaseEvent:   events.NewBase(events.CycleCompleted, m.now()),
			CycleID:     report.id,
			WindowStart: report.windowStart,
			WindowEnd:   report.windowEnd,
			Listed:      report.listed,
			New:         report.fresh,
			Processed:   report.processed,
			Duration:    report.duration,
		})
	}
	m.publishSnapshot(report)
}
