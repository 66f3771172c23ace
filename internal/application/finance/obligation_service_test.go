package finance

import (
	"context"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObligationService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewObligationService(f.runner, f.obligations, f.payments, nil)
	svc.SetEventPublisher(f.publisher)

	created, err := svc.Create(ctx, f.cc, CreateObligationRequest{
		Type:         "expense",
		Description:  "Aluguel março",
		Counterparty: "Imobiliária Sol",
		TotalAmount:  dec("1200"),
		DueDate:      time.Now().AddDate(0, 0, -3),
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", created.Status)
	assert.True(t, created.Overdue)
	assert.Equal(t, []string{finance.EventTypeObligationCreated}, f.publisher.Types())

	income := f.obligation(t, finance.ObligationTypeIncome, "300")

	t.Run("get", func(t *testing.T) {
		got, err := svc.GetByID(ctx, f.cc, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Imobiliária Sol", got.Counterparty)

		other := f.cc
		other.CompanyID = uuid.New()
		_, err = svc.GetByID(ctx, other, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("list by type", func(t *testing.T) {
		items, total, err := svc.List(ctx, f.cc, ObligationListFilter{Type: "income"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, income.ID, items[0].ID)
	})

	t.Run("list overdue", func(t *testing.T) {
		items, _, err := svc.List(ctx, f.cc, ObligationListFilter{Overdue: true})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, created.ID, items[0].ID)
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		_, _, err := svc.List(ctx, f.cc, ObligationListFilter{Statuses: []string{"lost"}})
		assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
	})

	t.Run("filter by criteria", func(t *testing.T) {
		items, total, err := svc.Filter(ctx, f.cc, FilterRequest{
			Criteria: map[string]any{"status": []any{"pending", "partial"}, "type": "expense"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, created.ID, items[0].ID)

		_, _, err = svc.Filter(ctx, f.cc, FilterRequest{Criteria: map[string]any{"password": "x"}})
		assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
	})

	t.Run("deactivate", func(t *testing.T) {
		resp, err := svc.Deactivate(ctx, f.cc, income.ID)
		require.NoError(t, err)
		assert.False(t, resp.IsActive)
		assert.Contains(t, f.publisher.Types(), finance.EventTypeObligationDeactivated)

		_, err = svc.Deactivate(ctx, f.cc, income.ID)
		assert.Equal(t, finance.CodeObligationInactive, shared.ErrorCode(err))

		stored := f.reload(t, income.ID)
		assert.False(t, stored.IsActive)
	})
}

func TestObligationService_Payments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewObligationService(f.runner, f.obligations, f.payments, nil)
	o := f.obligation(t, finance.ObligationTypeIncome, "100")
	acc := f.account(t, "0")

	for _, amount := range []string{"30", "20.50"} {
		_, err := f.abatements.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, amount))
		require.NoError(t, err)
	}

	history, err := svc.Payments(ctx, f.cc, o.ID)
	require.NoError(t, err)
	assert.Len(t, history.Payments, 2)
	assert.True(t, history.Total.Equal(dec("50.50")))

	payment, err := svc.Payment(ctx, f.cc, o.ID, history.Payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, history.Payments[0].ID, payment.ID)

	_, err = svc.Payment(ctx, f.cc, o.ID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	drift, err := svc.CheckBalance(ctx, f.cc, o.ID)
	require.NoError(t, err)
	assert.True(t, drift.IsZero())
}

func TestCashAccountService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCashAccountService(f.accounts, f.payments, nil)

	acc, err := svc.Create(ctx, f.cc, CreateCashAccountRequest{Name: "Banco", InitialBalance: dec("1000")})
	require.NoError(t, err)
	assert.True(t, acc.CurrentBalance.Equal(dec("1000")))

	income := f.obligation(t, finance.ObligationTypeIncome, "200")
	expense := f.obligation(t, finance.ObligationTypeExpense, "50")
	_, err = f.abatements.RegisterAbatement(ctx, f.cc, abatement(income, acc.ID, "200"))
	require.NoError(t, err)
	_, err = f.abatements.RegisterAbatement(ctx, f.cc, abatement(expense, acc.ID, "50"))
	require.NoError(t, err)

	report, err := svc.Reconcile(ctx, f.cc, acc.ID)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.True(t, report.ExpectedBalance.Equal(dec("1150")))
	assert.True(t, report.CurrentBalance.Equal(dec("1150")))
	assert.Equal(t, int64(2), report.PaymentCount)

	items, total, err := svc.List(ctx, f.cc, 1, 20, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Banco", items[0].Name)

	reports, err := svc.ReconcileAll(ctx, f.cc)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	_, err = svc.Create(ctx, f.cc, CreateCashAccountRequest{Name: "  "})
	assert.Error(t, err)
}
