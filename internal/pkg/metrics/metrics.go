package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 下单与库存相关指标。label 基数都是有限枚举。
var (
	CheckoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_requests_total",
		Help: "Checkout confirmations by result.",
	}, []string{"result"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "End-to-end checkout confirmation latency.",
		Buckets: prometheus.DefBuckets,
	})

	StockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_guard_conflicts_total",
		Help: "Guarded stock writes rejected by the availability condition.",
	})

	HoldsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holds_released_total",
		Help: "Expired holds released by the sweeper.",
	}, []string{"kind"})

	FollowupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_followup_failures_total",
		Help: "Best-effort post-confirmation tasks that failed.",
	}, []string{"task"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_consumed_total",
		Help: "Kafka events consumed by background workers.",
	}, []string{"worker", "outcome"})
)
