// Package metrics exposes classification counters and latencies in the
// Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/blotter/internal/model"
)

const namespace = "blotter"

// Recorder implements engine.Recorder on a private Prometheus registry.
type Recorder struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	fieldMisses *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New creates a Recorder and registers its collectors along with the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Reports classified, by predicted category and severity tier.",
		}, []string{"category", "severity"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Reports that could not be classified, by pipeline stage.",
		}, []string{"stage"}),
		fieldMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_misses_total",
			Help:      "Report fields that were not found during extraction.",
		}, []string{"field"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time to classify one report.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	r.registry.MustRegister(
		r.predictions,
		r.failures,
		r.fieldMisses,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObservePrediction counts a classified report and its latency.
func (r *Recorder) ObservePrediction(category string, sev model.Severity, elapsed time.Duration) {
	r.predictions.WithLabelValues(category, sev.String()).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// ObserveFailure counts a report that failed at stage.
func (r *Recorder) ObserveFailure(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// ObserveMissingField counts a field absent from a report.
func (r *Recorder) ObserveMissingField(f model.Field) {
	r.fieldMisses.WithLabelValues(string(f)).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry at /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// NewServer returns an HTTP server exposing Handler at /metrics on addr.
func (r *Recorder) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
