// internal/monitor/scheduler.go
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"go.uber.org/zap"
)

// Run polls until ctx is cancelled. The first cycle runs immediately; a
// failing cycle is logged and never stops the loop. Cycles never overlap:
// a tick that arrives while a cycle is running is skipped by the ticker.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Monitoring started",
		zap.String("network", m.cfg.Network),
		zap.Duration("interval", m.cfg.PollInterval),
		zap.Duration("lookback", m.cfg.Lookback))
	m.publish(events.MonitoringStartedEvent{
		BaseEvent: events.NewBase(events.MonitoringStarted, m.now()),
		ProgramID: m.cfg.ProgramID,
		Network:   m.cfg.Network,
		Interval:  m.cfg.PollInterval,
	})

	// Первый цикл сразу
	m.tick(ctx)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-ctx.Done():
			m.logger.Info("Monitoring stopped")
			m.publish(events.MonitoringStoppedEvent{
				BaseEvent: events.NewBase(events.MonitoringStopped, m.now()),
				Reason:    context.Cause(ctx).Error(),
			})
			return nil
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := m.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		m.logger.Debug("Previous cycle still running, skipping tick")
	case errors.Is(err, context.Canceled):
		m.logger.Debug("Cycle interrupted by shutdown")
	}
	// other failures are already logged by the cycle
}
