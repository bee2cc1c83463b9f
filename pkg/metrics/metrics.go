// Package metrics tracks a datstats run with Prometheus metrics.
//
// Each run owns its registry so repeated runs in one process (tests, library
// use) never collide on registration:
//
//	m := metrics.NewCollector()
//	m.RowsRead.Inc()
//	timer := m.NewTimer(metrics.PhaseRead)
//	...
//	timer.Stop()
//	err := m.WriteTextfile("run.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "datstats"

// Phases of a run, used as the "phase" label
const (
	PhaseRead      = "read"
	PhaseSummarize = "summarize"
	PhaseReport    = "report"
)

// Collector holds the metrics of one run
type Collector struct {
	registry *prometheus.Registry

	RowsRead      prometheus.Counter
	FieldsParsed  prometheus.Counter
	RowErrors     *prometheus.CounterVec
	Columns       prometheus.Gauge
	PhaseDuration *prometheus.HistogramVec
}

// NewCollector creates a collector backed by a fresh registry that also
// carries the Go runtime collectors
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows read from the stats file.",
		}),
		FieldsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_parsed_total",
			Help:      "Numeric fields parsed and accumulated.",
		}),
		RowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_errors_total",
			Help:      "Rows rejected, by error type.",
		}, []string{"type"}),
		Columns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "columns",
			Help:      "Column count established by the first row.",
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each run phase.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"phase"}),
	}

	reg.MustRegister(
		c.RowsRead,
		c.FieldsParsed,
		c.RowErrors,
		c.Columns,
		c.PhaseDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric in Prometheus text format to path
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Timer measures one phase
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer starts timing phase
func (c *Collector) NewTimer(phase string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: c.PhaseDuration.WithLabelValues(phase),
	}
}

// Stop records and returns the elapsed time
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.observer.Observe(d.Seconds())
	return d
}
