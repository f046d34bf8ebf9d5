// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JoinOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_join_total",
			Help: "Join attempts by outcome",
		},
		[]string{"outcome"},
	)

	OfferTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_offer_transitions_total",
			Help: "Offer lifecycle transitions",
		},
		[]string{"transition"},
	)

	TicketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_tickets_sold_total",
			Help: "Tickets minted by purchase finalization",
		},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admission_sweep_duration_seconds",
			Help:    "Duration of background sweep passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	SweepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_sweep_failures_total",
			Help: "Sweep operations that failed after retries",
		},
		[]string{"sweep"},
	)

	ConsistencyViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_consistency_violations_total",
			Help: "Detected breaches of admission atomicity",
		},
		[]string{"kind"},
	)

	StockDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_stock_drift_total",
			Help: "Ticket types whose persisted remaining count was corrected",
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_notification_failures_total",
			Help: "Domain events that could not be delivered",
		},
		[]string{"sink", "event_type"},
	)

	RateLimiterErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_rate_limiter_errors_total",
			Help: "Rate limiter backend failures (requests allowed through)",
		},
	)

	PendingExpiryTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "admission_pending_expiry_timers",
			Help: "Per-offer expiry timers currently armed",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
