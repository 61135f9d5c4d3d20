// internal/monitor/dispatcher.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/metrics"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
	"github.com/rovshanmuradov/raffle-monitor/internal/storage"
	"go.uber.org/zap"
)

// Announcement kinds.
const (
	KindCreation = "creation"
	KindWinner   = "winner"
)

// Outcome is the result of one dispatch call.
type Outcome int

const (
	// OutcomeDuplicate means the key was already announced; nothing was sent.
	OutcomeDuplicate Outcome = iota
	OutcomeDelivered
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFailed:
		return "failed"
	default:
		return "duplicate"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "delivered":
		*o = OutcomeDelivered
	case "failed":
		*o = OutcomeFailed
	case "duplicate":
		*o = OutcomeDuplicate
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Dispatcher sends at most one notification per logical event. Creation
// announcements are keyed by raffle id, winner announcements by transaction
// signature. The key is recorded before sending, so a failed send is
// dropped and never retried.
type Dispatcher struct {
	notifier     notify.Notifier
	knownRaffles *storage.BoundedSet
	knownWinners *storage.BoundedSet
	videoPath    string
	timeout      time.Duration
	journal      *Journal
	metrics      *metrics.Collector
	events       events.Publisher
	now          func() time.Time
	logger       *zap.Logger
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	KnownRaffles *storage.BoundedSet
	KnownWinners *storage.BoundedSet
	// VideoPath is attached to creation announcements when non-empty.
	VideoPath string
	// Timeout bounds each send.
	Timeout time.Duration
	Journal *Journal
	Metrics *metrics.Collector
	Events  events.Publisher
	Now     func() time.Time
}

// NewDispatcher creates a dispatcher over notifier.
func NewDispatcher(notifier notify.Notifier, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		notifier:     notifier,
		knownRaffles: cfg.KnownRaffles,
		knownWinners: cfg.KnownWinners,
		videoPath:    cfg.VideoPath,
		timeout:      cfg.Timeout,
		journal:      cfg.Journal,
		metrics:      cfg.Metrics,
		events:       cfg.Events,
		now:          cfg.Now,
		logger:       logger.Named("dispatcher"),
	}
	if d.knownRaffles == nil {
		d.knownRaffles = storage.NewBoundedSet()
	}
	if d.knownWinners == nil {
		d.knownWinners = storage.NewBoundedSet()
	}
	if d.timeout <= 0 {
		d.timeout = 10 * time.Second
	}
	if d.events == nil {
		d.events = events.Discard
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// AnnounceCreation announces a new raffle unless its id was announced before.
func (d *Dispatcher) AnnounceCreation(ctx context.Context, r raffle.Raffle) Outcome {
	if !d.knownRaffles.Add(r.ID) {
		d.logger.Debug("Raffle already announced", zap.String("raffle_id", r.ID))
		return OutcomeDuplicate
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	media, err := notify.SendWithFallback(sendCtx, d.notifier, d.videoPath,
		notify.CreationCaption(r), notify.CreationMessage(r), notify.Markdown, d.logger)
	outcome := d.finish(KindCreation, r.ID, r.ID, r.Name, media, err)
	if outcome == OutcomeDelivered {
		d.logger.Info("Raffle announced",
			zap.String("raffle_id", r.ID),
			zap.String("raffle_name", r.Name),
			zap.Bool("media", media))
	}
	return outcome
}

// AnnounceWinner announces a winner draw unless signature was announced before.
func (d *Dispatcher) AnnounceWinner(ctx context.Context, signature string, w notify.WinnerAnnouncement) Outcome {
	if !d.knownWinners.Add(signature) {
		d.logger.Debug("Winner already announced", zap.String("signature", signature))
		return OutcomeDuplicate
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.notifier.SendMessage(sendCtx, notify.WinnerMessage(w), notify.Markdown)
	outcome := d.finish(KindWinner, signature, w.RaffleID, w.RaffleName, false, err)
	if outcome == OutcomeDelivered {
		d.logger.Info("Winner announced",
			zap.String("raffle_id", w.RaffleID),
			zap.String("winner", w.Winner),
			zap.String("signature", signature),
			zap.Uint64("prize", w.Prize))
	}
	return outcome
}

func (d *Dispatcher) finish(kind, key, raffleID, name string, media bool, err error) Outcome {
	outcome := OutcomeDelivered
	entry := JournalEntry{
		Timestamp: d.now(),
		Kind:      kind,
		Key:       key,
		RaffleID:  raffleID,
		Name:      name,
		Media:     media,
	}
	switch {
	case err == nil:
	case notify.IsPartial(err):
		// at least one channel carried it; the journal keeps the rest
		entry.Error = err.Error()
		d.logger.Warn("Announcement partially delivered",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err))
	default:
		outcome = OutcomeFailed
		entry.Error = err.Error()
		d.logger.Warn("Announcement failed",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err))
		_ = d.events.Publish(events.AnnouncementFailedEvent{
			BaseEvent: events.NewBase(events.AnnouncementFailed, d.now()),
			Kind:      kind,
			Key:       key,
			Err:       err,
		})
	}
	entry.Outcome = outcome

	if d.journal != nil {
		d.journal.Record(entry)
	}
	if d.metrics != nil {
		d.metrics.RecordAnnouncement(kind, outcome == OutcomeDelivered)
	}
	return outcome
}
