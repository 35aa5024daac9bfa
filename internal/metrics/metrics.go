// Package metrics holds the prometheus collectors shared across middleware
// and services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	PaymentsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_payments_applied_total",
		Help: "Completed payments applied to invoices.",
	})

	QuotaDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_quota_denials_total",
		Help: "Quota reservations denied, by resource.",
	}, []string{"resource"})

	LockContentionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_lock_contention_total",
		Help: "Mutations that failed to acquire a row lock in bounded time.",
	})
)
