package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	// WebSocketConnections currently registered websocket connections (gauge)
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "websocket",
			Name:      "connections",
			Help:      "The number of currently registered websocket connections",
		},
	)

	// EmailsSent The total number of refund emails sent (counter)
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emails",
			Name:      "sent_total",
			Help:      "The total number of refund emails sent",
		},
		[]string{"status"},
	)

	// EmailsFailed The total number of refund emails that could not be sent (counter)
	EmailsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emails",
			Name:      "failed_total",
			Help:      "The total number of refund emails that could not be sent",
		},
		[]string{"status"},
	)
)
