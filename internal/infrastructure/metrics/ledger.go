// Package metrics exposes ledger and HTTP metrics in Prometheus format.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Namespace prefixes every metric name
const Namespace = "settlement"

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeReplayed = "replayed"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
)

// Ledger holds the service's collectors on a private registry.
// A nil *Ledger is valid and records nothing.
type Ledger struct {
	registry *prometheus.Registry

	abatements           *prometheus.CounterVec
	abatementAmount      *prometheus.CounterVec
	operations           *prometheus.CounterVec
	withdrawals          *prometheus.CounterVec
	installments         prometheus.Counter
	quoteConversions     prometheus.Counter
	concurrencyConflicts *prometheus.CounterVec
	eventDeliveries      *prometheus.CounterVec
	reconciledAccounts   *prometheus.CounterVec
	lastSweep            prometheus.Gauge
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// NewLedger creates the collectors and registers them with Go runtime
// and process collectors.
func NewLedger() *Ledger {
	m := &Ledger{
		registry: prometheus.NewRegistry(),
		abatements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "abatements_total",
			Help:      "Abatements applied to obligations.",
		}, []string{"type", "clamped"}),
		abatementAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "abatement_amount_total",
			Help:      "Sum of applied abatement amounts.",
		}, []string{"type"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Idempotent ledger operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal registrations by outcome.",
		}, []string{"outcome"}),
		installments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "installments_created_total",
			Help:      "Installment obligations created.",
		}),
		quoteConversions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quote_conversions_total",
			Help:      "Quotes converted into sales.",
		}),
		concurrencyConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Version-checked saves rejected because the record changed.",
		}, []string{"aggregate"}),
		eventDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "event_deliveries_total",
			Help:      "Domain event handler invocations.",
		}, []string{"event_type", "outcome"}),
		reconciledAccounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconciled_accounts_total",
			Help:      "Cash accounts checked by the reconciliation sweep.",
		}, []string{"balanced"}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "reconciliation_last_success_timestamp_seconds",
			Help:      "Unix time of the last company reconciliation that completed.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template, method and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.abatements,
		m.abatementAmount,
		m.operations,
		m.withdrawals,
		m.installments,
		m.quoteConversions,
		m.concurrencyConflicts,
		m.eventDeliveries,
		m.reconciledAccounts,
		m.lastSweep,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// RegisterDB exports connection pool statistics of db
func (m *Ledger) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus text format
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and extra collectors
func (m *Ledger) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAbatement counts one applied abatement
func (m *Ledger) ObserveAbatement(obligationType string, applied decimal.Decimal, clamped bool) {
	if m == nil {
		return
	}
	m.abatements.WithLabelValues(obligationType, strconv.FormatBool(clamped)).Inc()
	m.abatementAmount.WithLabelValues(obligationType).Add(applied.InexactFloat64())
}

// ObserveOperation counts one idempotent operation outcome
func (m *Ledger) ObserveOperation(kind, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, outcome).Inc()
}

// ObserveWithdrawal counts one withdrawal attempt
func (m *Ledger) ObserveWithdrawal(outcome string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(outcome).Inc()
}

// ObserveInstallments counts created installment obligations
func (m *Ledger) ObserveInstallments(n int) {
	if m == nil {
		return
	}
	m.installments.Add(float64(n))
}

// ObserveQuoteConversion counts one converted quote
func (m *Ledger) ObserveQuoteConversion() {
	if m == nil {
		return
	}
	m.quoteConversions.Inc()
}

// ObserveConcurrencyConflict counts a rejected version-checked save
func (m *Ledger) ObserveConcurrencyConflict(aggregate string) {
	if m == nil {
		return
	}
	m.concurrencyConflicts.WithLabelValues(aggregate).Inc()
}

// ObserveDelivery implements event.DeliveryObserver
func (m *Ledger) ObserveDelivery(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.eventDeliveries.WithLabelValues(eventType, outcome).Inc()
}

// ObserveReconciliation records the outcome of one company reconciliation
func (m *Ledger) ObserveReconciliation(balanced, drifted int) {
	if m == nil {
		return
	}
	m.reconciledAccounts.WithLabelValues("true").Add(float64(balanced))
	m.reconciledAccounts.WithLabelValues("false").Add(float64(drifted))
	m.lastSweep.SetToCurrentTime()
}

// ObserveHTTPRequest records one served request
func (m *Ledger) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
