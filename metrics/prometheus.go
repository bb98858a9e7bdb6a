package metrics

import (
	"net/http"
	"time"

	"github.com/dnldd/screener/engine"
	"github.com/dnldd/screener/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// namespace prefixes every screener metric.
	namespace = "screener"
)

// Recorder records analysis outcomes as prometheus metrics on a private
// registry.
type Recorder struct {
	registry          *prometheus.Registry
	timeframesTotal   *prometheus.CounterVec
	timeframeDuration *prometheus.HistogramVec
	signalsTotal      *prometheus.CounterVec
	signalConfidence  *prometheus.GaugeVec
	failuresTotal     *prometheus.CounterVec
	lastRun           prometheus.Gauge
}

// Ensure the recorder implements the engine Recorder interface.
var _ engine.Recorder = (*Recorder)(nil)

// New creates a new prometheus metrics recorder.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		timeframesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "timeframe_computations_total",
				Help:      "Total number of timeframe computations by outcome",
			},
			[]string{"timeframe", "outcome"},
		),
		timeframeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "timeframe_duration_seconds",
				Help:      "Duration of timeframe computations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"timeframe"},
		),
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Total number of fused signals by direction and agreement",
			},
			[]string{"direction", "agreement"},
		),
		signalConfidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "signal_confidence",
				Help:      "Latest fused signal confidence of an asset",
			},
			[]string{"asset"},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asset_failures_total",
				Help:      "Total number of failed asset analyses",
			},
			[]string{"asset"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the latest completed analysis run",
			},
		),
	}
}

// RecordTimeframe records the outcome of a timeframe computation.
func (r *Recorder) RecordTimeframe(asset string, timeframe shared.Timeframe, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	r.timeframesTotal.WithLabelValues(timeframe.String(), outcome).Inc()
	r.timeframeDuration.WithLabelValues(timeframe.String()).Observe(elapsed.Seconds())
}

// RecordSignal records a fused signal.
func (r *Recorder) RecordSignal(signal *shared.FusedSignal) {
	r.signalsTotal.WithLabelValues(signal.Direction.String(), signal.Agreement.String()).Inc()
	r.signalConfidence.WithLabelValues(signal.Asset).Set(signal.Confidence)
}

// RecordFailure records a failed asset analysis.
func (r *Recorder) RecordFailure(asset string, err error) {
	r.failuresTotal.WithLabelValues(asset).Inc()
	r.signalConfidence.DeleteLabelValues(asset)
}

// RecordRun records the completion time of an analysis run.
func (r *Recorder) RecordRun(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Handler returns the http handler exposing the recorded metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
