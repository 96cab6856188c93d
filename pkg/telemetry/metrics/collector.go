package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled enables metric recording. When false, every Record method
	// is a no-op.
	Enabled bool

	// Namespace is the metric name prefix.
	// Default: "custodia"
	Namespace string

	// Subsystem is the second metric name segment.
	// Default: "ledger"
	Subsystem string
}

// Collector owns all Prometheus metrics for the custody service.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	appendsTotal        *prometheus.CounterVec
	appendErrorsTotal   *prometheus.CounterVec
	verifyFailuresTotal *prometheus.CounterVec
	queryDuration       prometheus.Histogram
	sweepDuration       prometheus.Histogram
	itemsTotal          prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
}

// NewCollector creates a metrics collector on the given registry. A nil
// registry creates a private one.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "custodia"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "ledger"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		appendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "appends_total",
			Help:      "Custody events appended, by action.",
		}, []string{"action"}),

		appendErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "append_errors_total",
			Help:      "Rejected appends, by error kind.",
		}, []string{"kind"}),

		verifyFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "verify_failures_total",
			Help:      "Chain integrity verification failures, by kind.",
		}, []string{"kind"}),

		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "query_duration_seconds",
			Help:      "Evidence query evaluation latency.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "integrity_sweep_duration_seconds",
			Help:      "Full integrity sweep latency.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}),

		itemsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "items_total",
			Help:      "Evidence items under custody.",
		}),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route, and status.",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		c.appendsTotal,
		c.appendErrorsTotal,
		c.verifyFailuresTotal,
		c.queryDuration,
		c.sweepDuration,
		c.itemsTotal,
		c.httpRequestsTotal,
	)

	return c
}

// RecordAppend counts a committed custody event.
func (c *Collector) RecordAppend(action string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.appendsTotal.WithLabelValues(action).Inc()
}

// RecordAppendError counts a rejected append by error kind.
func (c *Collector) RecordAppendError(kind string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.appendErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordVerifyFailure counts an integrity verification failure by kind.
func (c *Collector) RecordVerifyFailure(kind string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.verifyFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveQueryDuration records the latency of one query evaluation.
func (c *Collector) ObserveQueryDuration(d time.Duration) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.queryDuration.Observe(d.Seconds())
}

// ObserveSweepDuration records the latency of one full integrity sweep.
func (c *Collector) ObserveSweepDuration(d time.Duration) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.sweepDuration.Observe(d.Seconds())
}

// SetItemCount sets the current number of items under custody.
func (c *Collector) SetItemCount(n int) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.itemsTotal.Set(float64(n))
}

// RecordHTTPRequest counts a completed HTTP request.
func (c *Collector) RecordHTTPRequest(method, route string, status int) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Registry returns the collector's Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
