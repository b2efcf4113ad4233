// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from a streaming run.
//
// A global, pluggable backend defaults to a no-op implementation, so the
// Record* helpers are always safe to call. Concrete systems (Prometheus
// Pushgateway, DogStatsD) live in subpackages.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal      = "bqstream_step_total"
	StepDuration   = "bqstream_step_duration_seconds"
	RowsTotal      = "bqstream_rows_total"
	InsertDuration = "bqstream_insert_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing
// backend. Call it before any goroutine records metrics.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Enabled reports whether a non-default backend is installed.
func Enabled() bool {
	_, nop := backend.(nopBackend)
	return !nop
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep records latency and success/failure of one stage of a run
// (ensure_table, read_source, stream).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments the row counter for kind ("read", "sent", "failed").
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordInsert observes the latency of a single streaming insert.
func RecordInsert(job string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	backend.ObserveHistogram(InsertDuration, d.Seconds(), Labels{
		"job":    job,
		"status": status,
	})
}
