// Package metrics records analyzer call and clip outcomes as Prometheus
// metrics. A batch has no scrape endpoint; the registry is written to a
// node_exporter textfile when the batch ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chronicle"

// Recorder owns a private registry so concurrent batches (and tests) never
// share counters.
type Recorder struct {
	registry *prometheus.Registry

	// calls counts analyzer calls.
	// Labels:
	//   - analyzer: "speech" or "scene"
	//   - outcome: "success", "failure" or "timeout"
	calls *prometheus.CounterVec

	// attempts counts individual attempts including retries.
	attempts *prometheus.CounterVec

	// callDuration observes the wall time of a call including retries.
	// Buckets: 1s, 5s, 15s, 30s, 60s, 120s, 300s
	callDuration *prometheus.HistogramVec

	// clips counts checkpointed clips by analysisStatus.
	clips *prometheus.CounterVec

	clipDuration prometheus.Histogram
	lastRun      prometheus.Gauge
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyzer_calls_total",
				Help:      "Analyzer calls by analyzer and final outcome",
			},
			[]string{"analyzer", "outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyzer_attempts_total",
				Help:      "Analyzer call attempts including retries",
			},
			[]string{"analyzer"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analyzer_call_duration_seconds",
				Help:      "Duration of analyzer calls in seconds, retries included",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"analyzer"},
		),
		clips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clips_total",
				Help:      "Checkpointed clips by analysis status",
			},
			[]string{"status"},
		),
		clipDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clip_duration_seconds",
			Help:      "Time from clip start to checkpoint",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_completed_timestamp_seconds",
			Help:      "Unix time the last batch finished",
		}),
	}
	r.registry.MustRegister(r.calls, r.attempts, r.callDuration, r.clips, r.clipDuration, r.lastRun)
	return r
}

// ObserveCall records one analyzer call.
func (r *Recorder) ObserveCall(analyzer, outcome string, attempts int, elapsed time.Duration) {
	r.calls.WithLabelValues(analyzer, outcome).Inc()
	if attempts > 0 {
		r.attempts.WithLabelValues(analyzer).Add(float64(attempts))
	}
	r.callDuration.WithLabelValues(analyzer).Observe(elapsed.Seconds())
}

// ObserveClip records one checkpointed clip.
func (r *Recorder) ObserveClip(status string, elapsed time.Duration) {
	r.clips.WithLabelValues(status).Inc()
	r.clipDuration.Observe(elapsed.Seconds())
}

// MarkBatchComplete stamps the completion gauge.
func (r *Recorder) MarkBatchComplete(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes every metric in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
