package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	reportsSent  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	liquidatable *prometheus.GaugeVec
	scanned      *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		reportsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendpulse_reports_sent_total",
				Help: "Total number of health reports sent to backend",
			},
			[]string{"backend", "market"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		liquidatable: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lendpulse_liquidatable_obligations",
				Help: "Obligations currently flagged liquidatable per market",
			},
			[]string{"market"},
		),
		scanned: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lendpulse_scanned_obligations",
				Help: "Obligations covered by the most recent market scan",
			},
			[]string{"market"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lendpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordReportSent records a health report sent to a backend.
func (r *Recorder) RecordReportSent(backend, market string) {
	r.reportsSent.WithLabelValues(backend, market).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLiquidatable records the liquidatable obligation count for a market.
func (r *Recorder) RecordLiquidatable(market string, n int) {
	r.liquidatable.WithLabelValues(market).Set(float64(n))
}

// RecordScannedObligations records how many obligations the last scan covered.
func (r *Recorder) RecordScannedObligations(market string, n int) {
	r.scanned.WithLabelValues(market).Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
