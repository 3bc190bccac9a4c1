package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainingload",
			Subsystem: "consumer",
			Name:      "messages_processed_total",
			Help:      "Messages successfully handled and committed.",
		},
		[]string{"topic", "event_type"},
	)

	handlerErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainingload",
			Subsystem: "consumer",
			Name:      "handler_errors_total",
			Help:      "Handler failures; the message is left uncommitted for redelivery.",
		},
		[]string{"topic", "event_type"},
	)

	decodeErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainingload",
			Subsystem: "consumer",
			Name:      "decode_errors_total",
			Help:      "Messages that could not be decoded and were skipped.",
		},
		[]string{"topic"},
	)

	lastMessageGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "trainingload",
			Subsystem: "consumer",
			Name:      "last_message_timestamp_seconds",
			Help:      "Producer timestamp of the most recently committed message.",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
