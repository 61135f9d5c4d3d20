// internal/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "raffle_monitor"

// Collector управляет набором метрик. Each collector owns its registry so
// several monitors (and tests) never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	transactions  *prometheus.CounterVec
	announcements *prometheus.CounterVec
	rpcLatency    *prometheus.HistogramVec
	tracked       *prometheus.GaugeVec
	setSize       *prometheus.GaugeVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by outcome",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a poll cycle",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions examined by classification",
		}, []string{"kind"}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Announcements dispatched by kind and status",
		}, []string{"kind", "status"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "RPC request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"method", "status"}),
		tracked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_raffles",
			Help:      "Raffles currently tracked by state",
		}, []string{"state"}),
		setSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_set_size",
			Help:      "Entries held by the deduplication sets",
		}, []string{"set"}),
	}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	c.registry.MustRegister(
		c.cycles,
		c.cycleDuration,
		c.transactions,
		c.announcements,
		c.rpcLatency,
		c.tracked,
		c.setSize,
	)
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry exposes the registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
