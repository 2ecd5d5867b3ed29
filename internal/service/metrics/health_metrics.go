package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	HealthAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lendpulse",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of health API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	HealthAPIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lendpulse",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by health API endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(HealthAPILatency, HealthAPIErrors)
	})
}
