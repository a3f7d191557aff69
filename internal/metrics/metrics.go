package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_settlements_total",
			Help: "Referral settlements by outcome",
		},
		[]string{"outcome"},
	)

	SettlementsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_settlements_dropped_total",
			Help: "Settlements dropped after exhausting retries",
		},
	)

	ActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_activations_total",
			Help: "Referral relationship activations by result",
		},
		[]string{"result"},
	)

	TradesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_ingested_total",
			Help: "Trades ingested by source and result",
		},
		[]string{"source", "result"},
	)

	WithdrawalTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal status changes by target status",
		},
		[]string{"status"},
	)
)
