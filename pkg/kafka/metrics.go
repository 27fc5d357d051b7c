package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

	producerOnce        sync.Once
	producerMsgsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec

	consumerOnce          sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerQueueFullness *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
)

// SetMetricsRegisterer overrides the registerer used by producers and
// consumers created afterwards. Tests use a fresh prometheus.Registry.
func SetMetricsRegisterer(reg prometheus.Registerer) {
	if reg != nil {
		metricsRegisterer = reg
	}
}

func initProducerMetricsOnce() {
	producerOnce.Do(func() {
		f := promauto.With(metricsRegisterer)
		producerMsgsTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_kafka_producer_messages_total",
			Help: "Total messages published to Kafka",
		}, []string{"topic", "compression", "result"})
		producerBytesTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_kafka_producer_bytes_total",
			Help: "Total payload bytes published",
		}, []string{"topic", "compression"})
		producerLatencyHist = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockpulse_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		f := promauto.With(metricsRegisterer)
		consumerQueueDepth = f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockpulse_kafka_consumer_queue_depth",
			Help: "Messages waiting for a consumer worker",
		}, []string{"topic"})
		consumerQueueFullness = f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockpulse_kafka_consumer_queue_fullness",
			Help: "Worker queue utilization (len/cap)",
		}, []string{"topic"})
		consumerHandleLatency = f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "stockpulse_kafka_consumer_handle_seconds",
			Help: "Handling time per message, retries included",
		}, []string{"topic"})
	})
}

func observeProducer(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if producerMsgsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgsTotal.WithLabelValues(topic, comp, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeQueue(topic string, n, capacity int) {
	if consumerQueueDepth == nil || capacity == 0 {
		return
	}
	consumerQueueDepth.WithLabelValues(topic).Set(float64(n))
	consumerQueueFullness.WithLabelValues(topic).Set(float64(n) / float64(capacity))
}

func observeHandle(topic string, d time.Duration) {
	if consumerHandleLatency != nil {
		consumerHandleLatency.WithLabelValues(topic).Observe(d.Seconds())
	}
}
