// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContactReveals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_reveals_total",
			Help: "Total number of contact reveal requests by outcome",
		},
		[]string{"outcome"},
	)

	QuotaDebits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_debits_total",
			Help: "Total number of contact views debited from an employer quota",
		},
		[]string{"plan_id"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Total number of applied application status transitions",
		},
		[]string{"from", "to"},
	)

	StatusTransitionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transition_errors_total",
			Help: "Total number of rejected application status transitions",
		},
		[]string{"error_code"},
	)

	ConcurrencyRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_transition_conflict_retries_total",
			Help: "Total number of transitions retried after a version conflict",
		},
	)

	SubscriptionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_cache_lookups_total",
			Help: "Subscription cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	HookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hook_deliveries_total",
			Help: "Total number of post-commit hook deliveries by result",
		},
		[]string{"hook", "result"},
	)

	HooksActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hook_deliveries_active",
			Help: "Number of in-flight hook deliveries per hook",
		},
		[]string{"hook"},
	)
)
