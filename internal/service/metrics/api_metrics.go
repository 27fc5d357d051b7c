package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockpulse",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of query API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by query API endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)

	CandlesReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockpulse",
			Subsystem: "api",
			Name:      "candles_returned",
			Help:      "Number of candles returned per query",
			Buckets:   []float64{0, 1, 6, 24, 168, 720},
		},
		[]string{"endpoint"},
	)
)

// Register adds the API collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, CandlesReturned)
	})
}
