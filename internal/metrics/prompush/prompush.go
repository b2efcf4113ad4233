// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Counters and summaries are kept in a private registry and pushed to the
// gateway on Flush. Every push replaces the metrics of this run's grouping
// key (job plus any extra labels such as run_id).
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"bqstream/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	grouping   map[string]string
	reg        *prometheus.Registry

	stepCounter    *prometheus.CounterVec   // bqstream_step_total
	stepDuration   *prometheus.SummaryVec   // bqstream_step_duration_seconds
	rowCounter     *prometheus.CounterVec   // bqstream_rows_total
	insertDuration *prometheus.HistogramVec // bqstream_insert_duration_seconds
}

// Option customizes a Backend.
type Option func(*Backend)

// WithGrouping adds a Pushgateway grouping label, e.g. run_id.
func WithGrouping(name, value string) Option {
	return func(b *Backend) {
		if name != "" && value != "" {
			b.grouping[name] = value
		}
	}
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (usually the pipeline job).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string, opts ...Option) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "bqstream"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Total number of run stages executed, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of run stages in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts per kind (read, sent, failed).",
		},
		[]string{"kind"},
	)
	insertDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metrics.InsertDuration,
			Help:    "Latency of single-row streaming inserts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"status"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, insertDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	b := &Backend{
		gatewayURL:     gatewayURL,
		jobName:        jobName,
		grouping:       map[string]string{},
		reg:            reg,
		stepCounter:    stepCounter,
		stepDuration:   stepDuration,
		rowCounter:     rowCounter,
		insertDuration: insertDuration,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StepDuration:
		if b.stepDuration == nil {
			return
		}
		b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)

	case metrics.InsertDuration:
		if b.insertDuration == nil {
			return
		}
		b.insertDuration.WithLabelValues(labels["status"]).Observe(value)
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	for k, v := range b.grouping {
		p = p.Grouping(k, v)
	}
	return p.Push()
}
