package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_messages_total",
		Help: "Kafka messages handed to the writer, by topic and result.",
	}, []string{"topic", "status"})

	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_producer_publish_duration_seconds",
		Help:    "Duration of Kafka publish calls.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"topic"})
)

func observePublish(topic string, start time.Time, err error) {
	publishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	publishedTotal.WithLabelValues(topic, status).Inc()
}

var (
	received = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_received_total",
		Help: "Kafka messages fetched by consumers.",
	}, []string{"topic", "consumer_group"})

	handled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_handled_total",
		Help: "Kafka messages handled by consumers, by result.",
	}, []string{"topic", "consumer_group", "status"})

	handleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_consumer_processing_duration_seconds",
		Help:    "Time spent handling a Kafka message, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic", "consumer_group"})

	deadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_dlq_published_total",
		Help: "Kafka messages copied to a dead-letter topic.",
	}, []string{"topic", "consumer_group"})

	duplicates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_duplicate_total",
		Help: "Kafka events skipped because they were already processed.",
	}, []string{"event_type"})
)

func observeHandled(topic, group string, start time.Time, err error) {
	handleDuration.WithLabelValues(topic, group).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	handled.WithLabelValues(topic, group, status).Inc()
}
