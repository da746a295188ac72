package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of line items added to carts",
	})

	CartWriteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_write_failures_total",
		Help: "Total number of swallowed cart persistence failures",
	}, []string{"op"})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkout attempts",
	}, []string{"reason"})

	CartClearFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_clear_failures_total",
		Help: "Total number of cart line items that could not be deleted after checkout",
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout processing",
		Buckets: prometheus.DefBuckets,
	})

	CardsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_cards_saved_total",
		Help: "Total number of payment cards saved",
	})

	CardValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_card_validation_failures_total",
		Help: "Total number of rejected card submissions",
	}, []string{"field"})

	SnapshotsPushedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_snapshots_pushed_total",
		Help: "Total number of collection snapshots pushed to subscribers",
	}, []string{"collection"})

	SnapshotsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_snapshots_dropped_total",
		Help: "Total number of snapshots dropped because a subscriber was slow",
	}, []string{"collection"})

	NotificationsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_written_total",
		Help: "Total number of order notifications written by the worker",
	})

	JournalUploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_uploads_total",
		Help: "Total number of journal photos uploaded",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
