package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Counters(t *testing.T) {
	m := NewLedger()

	m.ObserveAbatement("income", decimal.RequireFromString("150.50"), false)
	m.ObserveAbatement("income", decimal.RequireFromString("49.50"), true)
	m.ObserveAbatement("expense", decimal.NewFromInt(10), false)
	m.ObserveOperation("abatement", OutcomeSuccess)
	m.ObserveOperation("abatement", OutcomeReplayed)
	m.ObserveWithdrawal(OutcomeRejected)
	m.ObserveInstallments(3)
	m.ObserveQuoteConversion()
	m.ObserveConcurrencyConflict("obligation")
	m.ObserveDelivery("AbatementApplied", nil)
	m.ObserveDelivery("AbatementApplied", errors.New("x"))
	m.ObserveReconciliation(4, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.abatements.WithLabelValues("income", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.abatements.WithLabelValues("income", "false")))
	assert.InDelta(t, 200.0, testutil.ToFloat64(m.abatementAmount.WithLabelValues("income")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("abatement", OutcomeReplayed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.withdrawals.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.installments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quoteConversions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.concurrencyConflicts.WithLabelValues("obligation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventDeliveries.WithLabelValues("AbatementApplied", OutcomeFailure)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.reconciledAccounts.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciledAccounts.WithLabelValues("false")))
	assert.Greater(t, testutil.ToFloat64(m.lastSweep), 0.0)
}

func TestLedger_NilIsNoop(t *testing.T) {
	var m *Ledger
	assert.NotPanics(t, func() {
		m.ObserveAbatement("income", decimal.NewFromInt(1), false)
		m.ObserveOperation("abatement", OutcomeSuccess)
		m.ObserveWithdrawal(OutcomeSuccess)
		m.ObserveInstallments(1)
		m.ObserveQuoteConversion()
		m.ObserveConcurrencyConflict("sale")
		m.ObserveDelivery("x", nil)
		m.ObserveReconciliation(1, 0)
		m.ObserveHTTPRequest("GET", "/health", 200, time.Millisecond)
	})
}

func TestLedger_Handler(t *testing.T) {
	m := NewLedger()
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/finance/obligations/:id/abatements", http.StatusCreated, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `settlement_http_requests_total{method="POST",route="/api/v1/finance/obligations/:id/abatements",status="201"} 1`)
	assert.Contains(t, text, `route="unmatched"`)
	assert.Contains(t, text, "settlement_http_request_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
