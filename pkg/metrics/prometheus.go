package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshots    *prometheus.CounterVec
	bandChanges  *prometheus.CounterVec
	coeffRefresh *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	riskValue    *prometheus.GaugeVec
	finalScore   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		snapshots: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_snapshots_total",
				Help: "Total number of risk snapshots computed",
			},
			[]string{"symbol"},
		),
		bandChanges: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_band_changes_total",
				Help: "Total number of risk band transitions detected",
			},
			[]string{"symbol"},
		),
		coeffRefresh: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_coefficient_refreshes_total",
				Help: "Coefficient fetches, labelled by freshness outcome",
			},
			[]string{"symbol", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		riskValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "riskpulse_risk_value",
				Help: "Last computed normalized risk value per symbol",
			},
			[]string{"symbol"},
		),
		finalScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "riskpulse_final_score",
				Help: "Last composed final score per symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSnapshot counts a completed snapshot for a symbol.
func (r *Recorder) RecordSnapshot(symbol string) {
	r.snapshots.WithLabelValues(symbol).Inc()
}

// RecordBandChange counts a detected band transition.
func (r *Recorder) RecordBandChange(symbol string) {
	r.bandChanges.WithLabelValues(symbol).Inc()
}

// RecordCoefficientRefresh counts a coefficient fetch attempt.
func (r *Recorder) RecordCoefficientRefresh(symbol string, stale bool) {
	result := "fresh"
	if stale {
		result = "stale"
	}
	r.coeffRefresh.WithLabelValues(symbol, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRiskValue records the last risk value for a symbol.
func (r *Recorder) RecordRiskValue(symbol string, v float64) {
	r.riskValue.WithLabelValues(symbol).Set(v)
}

// RecordFinalScore records the last final score for a symbol.
func (r *Recorder) RecordFinalScore(symbol string, score float64) {
	r.finalScore.WithLabelValues(symbol).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
