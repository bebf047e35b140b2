// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the ingestion pipeline.
//
// The package is intentionally minimal:
//
//   - Backend is a narrow interface of counters and histograms.
//   - A global, pluggable backend defaults to a no-op implementation, so
//     metric calls are always safe even when nothing is configured.
//   - Concrete metric systems live in subpackages and are never imported by
//     pipeline code.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/size style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

// nopBackend is used by default so metrics stay optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStage measures one pipeline stage: a counter split by success or
// failure plus a duration histogram.
func RecordStage(stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"stage": stage, "status": status}
	backend.IncCounter("ingest_stage_total", 1, lbls)
	backend.ObserveHistogram("ingest_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordFile counts one completed ingestion by detected file type.
func RecordFile(fileType string) {
	backend.IncCounter("ingest_files_total", 1, Labels{"file_type": fileType})
}

// RecordFallback counts an activation of the mixed-delimiter fallback parser.
func RecordFallback() {
	backend.IncCounter("ingest_fallback_total", 1, nil)
}

// RecordWarnings counts data-quality warnings accumulated for one source.
func RecordWarnings(n int) {
	if n > 0 {
		backend.IncCounter("ingest_warnings_total", float64(n), nil)
	}
}
