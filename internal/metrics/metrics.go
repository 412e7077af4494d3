package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCompleted    = "completed"
	OutcomeRejected     = "rejected"
	OutcomeInsufficient = "insufficient_balance"
	OutcomeDuplicate    = "duplicate"
	OutcomeError        = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_http_requests_total",
		Help: "Total HTTP requests processed, labeled by route and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallet_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transfers_total",
		Help: "Transfer attempts by outcome",
	}, []string{"outcome"})

	FundingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_fundings_total",
		Help: "Funding attempts by outcome",
	}, []string{"outcome"})

	IdempotencyReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_idempotency_replays_total",
		Help: "Responses served from the idempotency store",
	})

	IdempotencyKeysCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_idempotency_keys_cleaned_total",
		Help: "Expired idempotency keys removed by cleanup",
	})
)
