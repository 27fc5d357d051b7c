package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesIngested *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	flushes        *prometheus.CounterVec
	batchSize      prometheus.Histogram
	bufferDepth    prometheus.Gauge
}

// New creates a new Prometheus metrics recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tradesIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_trades_ingested_total",
				Help: "Total number of trade events accepted into the batch buffer",
			},
			[]string{"symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		flushes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_buffer_flushes_total",
				Help: "Batch buffer flushes by trigger",
			},
			[]string{"trigger"},
		),
		batchSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockpulse_batch_size",
				Help:    "Number of trades per persisted batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
			},
		),
		bufferDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockpulse_buffer_depth",
				Help: "Trades currently pending in the batch buffer",
			},
		),
	}
}

// RecordTradeIngested counts a trade accepted for a symbol.
func (r *Recorder) RecordTradeIngested(symbol string) {
	r.tradesIngested.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordFlush records a buffer flush and the size of the batch it produced.
func (r *Recorder) RecordFlush(trigger string, size int) {
	r.flushes.WithLabelValues(trigger).Inc()
	r.batchSize.Observe(float64(size))
}

func (r *Recorder) RecordBufferDepth(n int) {
	r.bufferDepth.Set(float64(n))
}
