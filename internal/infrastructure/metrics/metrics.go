package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_messages_appended_total",
			Help: "Total messages appended to conversations",
		},
		[]string{"sender"}, // "user" or "admin"
	)

	ReadReceipts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supportchat_messages_marked_read_total",
			Help: "Total messages flipped to read",
		},
	)

	PresenceSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supportchat_presence_sweep_offline_total",
			Help: "Sessions flipped offline by heartbeat timeout",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "supportchat_active_chat_sessions",
			Help: "Currently open end-user chat sessions",
		},
	)

	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supportchat_ws_connections",
			Help: "Open WebSocket connections",
		},
		[]string{"kind"}, // "user" or "admin"
	)

	WriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_write_failures_total",
			Help: "Store writes that failed and were not retried",
		},
		[]string{"op"},
	)
)
