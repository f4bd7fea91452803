// Package metrics records submission outcomes as Prometheus metrics.
//
// The CLI is short-lived, so metrics are not scraped. Instead the registry
// is written to a node_exporter textfile after each run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeTransport  = "transport_error"
	OutcomeFormat     = "format_error"
	OutcomeStorage    = "storage_error"
	OutcomeExhausted  = "quota_exhausted"
	OutcomeBusy       = "busy"
)

// Recorder holds the mapleads collectors on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	requestDuration prometheus.Histogram
	remainingRuns   prometheus.Gauge
	resultsClamped  prometheus.Counter
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapleads_submissions_total",
				Help: "Total number of lead submissions by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mapleads_webhook_request_duration_seconds",
				Help:    "Duration of webhook requests in seconds",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		remainingRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mapleads_remaining_runs",
				Help: "Free submissions left in the local quota",
			},
		),
		resultsClamped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mapleads_results_clamped_total",
				Help: "Number of times the requested result count was clamped",
			},
		),
	}
	r.registry.MustRegister(r.submissions, r.requestDuration, r.remainingRuns, r.resultsClamped)
	return r
}

// Submission counts one finished submission.
func (r *Recorder) Submission(outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(outcome).Inc()
}

// ObserveRequest records how long the webhook took.
func (r *Recorder) ObserveRequest(d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.Observe(d.Seconds())
}

// SetRemaining updates the remaining-runs gauge.
func (r *Recorder) SetRemaining(n int) {
	if r == nil {
		return
	}
	r.remainingRuns.Set(float64(n))
}

// ResultsClamped counts one clamp of the result count.
func (r *Recorder) ResultsClamped() {
	if r == nil {
		return
	}
	r.resultsClamped.Inc()
}

// WriteTextfile writes all metrics in the text exposition format to path,
// atomically replacing any previous file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
