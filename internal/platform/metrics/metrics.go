// Package metrics exposes the Prometheus collectors of the service.
// Collectors are registered on the default registry; /metrics serves them.
package metrics

import (
	"errors"
	"net/http"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts handled requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// FulfillmentOperationsTotal counts engine operations by outcome.
	FulfillmentOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_operations_total",
			Help: "Fulfillment engine operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// LedgerEntriesTotal counts appended stock ledger entries by type.
	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_ledger_entries_total",
			Help: "Stock ledger entries appended, by type",
		},
		[]string{"type"},
	)

	// FlaggedBalancesTotal counts balance rows flagged for reconciliation.
	FlaggedBalancesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_balances_flagged_total",
			Help: "Stock balance rows flagged for reconciliation",
		},
	)

	// ReconciledBalancesTotal counts reconciled rows by result.
	ReconciledBalancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_balances_reconciled_total",
			Help: "Stock balance rows checked by reconciliation, by result",
		},
		[]string{"result"},
	)

	// EventsPublishedTotal counts published domain events.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published to the message broker",
		},
		[]string{"routing_key", "outcome"},
	)
)

// Outcome classifies err into a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation_error"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrConsistency):
		return "consistency_error"
	default:
		return "error"
	}
}

// ObserveOperation records one engine operation.
func ObserveOperation(operation string, err error) {
	FulfillmentOperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
