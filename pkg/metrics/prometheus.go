package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements podds.Metrics using Prometheus
type Recorder struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	runs        prometheus.Counter
}

// New creates a recorder with its own registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchpredict_fixtures_predicted_total",
				Help: "Fixtures processed, by row status",
			},
			[]string{"status"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchpredict_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"kind"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchpredict_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"operation"},
		),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "matchpredict_runs_total",
			Help: "Prediction runs started",
		}),
	}
}

// RecordPrediction counts one fixture row by status
func (r *Recorder) RecordPrediction(status string) {
	r.predictions.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// ObserveSimulation records the time spent simulating one fixture
func (r *Recorder) ObserveSimulation(seconds float64) {
	r.latency.WithLabelValues("simulate").Observe(seconds)
}

// RecordLatency records operation latency in seconds
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRun() {
	r.runs.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
