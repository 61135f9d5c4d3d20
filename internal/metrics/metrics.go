// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"time"
)

// Cycle outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// RecordCycle записывает метрики цикла опроса
func (c *Collector) RecordCycle(ctx context.Context, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	switch {
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeFailed
	}
	c.cycles.WithLabelValues(outcome).Inc()
	c.cycleDuration.Observe(duration.Seconds())
}

// RecordTransaction counts an examined transaction by its classification.
func (c *Collector) RecordTransaction(kind string) {
	c.transactions.WithLabelValues(kind).Inc()
}

// RecordAnnouncement counts a dispatched announcement.
func (c *Collector) RecordAnnouncement(kind string, delivered bool) {
	status := "delivered"
	if !delivered {
		status = "failed"
	}
	c.announcements.WithLabelValues(kind, status).Inc()
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.rpcLatency.WithLabelValues(method, status).Observe(duration.Seconds())
}

// UpdateTracked sets the active and ended raffle gauges.
func (c *Collector) UpdateTracked(active, ended int) {
	c.tracked.WithLabelValues("active").Set(float64(active))
	c.tracked.WithLabelValues("ended").Set(float64(ended))
}

// UpdateSetSize sets the size gauge of one deduplication set.
func (c *Collector) UpdateSetSize(set string, size int) {
	c.setSize.WithLabelValues(set).Set(float64(size))
}
