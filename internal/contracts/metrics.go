package contracts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "undercity_settlements_total",
		Help: "Settlement operations by outcome.",
	}, []string{"operation", "outcome"})

	settlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "undercity_settlement_duration_seconds",
		Help:    "Duration of settlement transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	contractsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "undercity_contracts_expired_total",
		Help: "Contracts transitioned to expired by lazy sweeps and inline checks.",
	})
)
