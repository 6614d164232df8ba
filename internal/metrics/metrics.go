// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_total",
			Help: "Checkout session requests by result",
		},
		[]string{"result"},
	)

	PaymentEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_events_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_notifications_total",
			Help: "Purchase notifications by channel and result",
		},
		[]string{"channel", "result"},
	)

	SweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_sweep_deleted_total",
			Help: "Expired purchases deleted by the sweeper",
		},
	)

	SweepFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_sweep_failed_total",
			Help: "Expired purchases the sweeper failed to delete",
		},
	)

	SweepLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_sweep_last_run_timestamp",
			Help: "Unix time of the last completed sweep",
		},
	)

	UsageConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_usage_consumed_total",
			Help: "Metered usage requests by result",
		},
		[]string{"result"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest observes one finished HTTP request.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordNotification counts one delivery attempt on a channel.
func RecordNotification(channel string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	NotificationsTotal.WithLabelValues(channel, result).Inc()
}
