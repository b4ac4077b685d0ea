// Package metrics exposes the prometheus collectors shared by both services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizzeria_orders_submitted_total",
		Help: "Order submission attempts, first tries and retries alike.",
	})
	OrdersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizzeria_orders_accepted_total",
		Help: "Orders confirmed by the kitchen hand-off.",
	})
	OrdersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizzeria_orders_failed_total",
		Help: "Orders dropped after exhausting submission retries.",
	})
	SubmissionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizzeria_submission_retries_total",
		Help: "Failed attempts that were queued for replay.",
	})
	KitchenTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizzeria_kitchen_transitions_total",
		Help: "Kitchen state transitions by target status.",
	}, []string{"to"})
	PreparationMinutes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pizzeria_preparation_minutes",
		Help:    "Minutes from start to ready per order.",
		Buckets: []float64{5, 10, 15, 20, 30, 45, 60},
	})
)
