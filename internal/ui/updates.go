package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"go.uber.org/zap"
)

const dropReportInterval = 30 * time.Second

// UpdateSender hands bus events to the Bubble Tea program. The monitor must
// never wait on the terminal, so a full channel drops the update.
type UpdateSender struct {
	out     chan<- tea.Msg
	sent    atomic.Uint64
	dropped atomic.Uint64
	logger  *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewUpdateSender starts a sender writing to out.
func NewUpdateSender(out chan<- tea.Msg, logger *zap.Logger) *UpdateSender {
	return newUpdateSender(out, logger, dropReportInterval)
}

func newUpdateSender(out chan<- tea.Msg, logger *zap.Logger, reportEvery time.Duration) *UpdateSender {
	ctx, cancel := context.WithCancel(context.Background())
	us := &UpdateSender{
		out:    out,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go us.reportDrops(ctx, reportEvery)
	return us
}

// SendUpdate offers msg to the program and returns immediately.
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case us.out <- msg:
		us.sent.Add(1)
	default:
		us.dropped.Add(1)
	}
}

// Handle implements events.Handler.
func (us *UpdateSender) Handle(_ context.Context, event events.Event) error {
	us.SendUpdate(EventMsg{Record: events.NewRecord(event)})
	return nil
}

// GetStats returns how many updates were delivered and dropped so far.
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	return us.sent.Load(), us.dropped.Load()
}

// reportDrops warns once per interval in which updates were lost.
func (us *UpdateSender) reportDrops(ctx context.Context, every time.Duration) {
	defer close(us.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var reported uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped := us.dropped.Load()
			if dropped == reported {
				continue
			}
			us.logger.Warn("Dashboard is lagging, updates dropped",
				zap.Uint64("dropped", dropped-reported),
				zap.Uint64("dropped_total", dropped),
				zap.Uint64("sent_total", us.sent.Load()))
			reported = dropped
		}
	}
}

// Close stops the drop reporter. Safe to call twice.
func (us *UpdateSender) Close() {
	us.cancel()
	<-us.done
}
