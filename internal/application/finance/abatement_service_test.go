package finance

import (
	"context"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abatement(o *finance.Obligation, accountID uuid.UUID, amount string) RegisterAbatementRequest {
	return RegisterAbatementRequest{
		ObligationID:  o.ID,
		Amount:        dec(amount),
		AccountID:     accountID,
		PaymentMethod: string(finance.PaymentMethodPix),
	}
}

// ==================== Apply ====================

func TestAbatementService_PartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeIncome, "100.00")
	acc := f.account(t, "10.00")

	result, err := f.abatements.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, "40"))
	require.NoError(t, err)

	assert.True(t, result.Applied.Equal(dec("40")))
	assert.False(t, result.Clamped)
	assert.False(t, result.Replayed)
	assert.Equal(t, "partial", result.Obligation.Status)
	assert.True(t, result.Obligation.RemainingAmount.Equal(dec("60")))
	assert.True(t, result.AccountBalance.Equal(dec("50")))
	assert.Equal(t, "Restante: R$ 60,00", result.RemainingDisplay)

	stored := f.reload(t, o.ID)
	assert.True(t, stored.PaidAmount.Equal(dec("40")))
	assert.Nil(t, stored.PaymentDate)
	require.NoError(t, stored.CheckInvariants())
	assert.True(t, f.balance(t, acc.ID).Equal(dec("50")))

	history, err := f.payments.FindByObligation(ctx, f.cc.CompanyID, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Maria Souza", history[0].Responsible)
	assert.Equal(t, result.PaymentEventID, history[0].ID)

	assert.Equal(t, []string{finance.EventTypeAbatementApplied, finance.EventTypeCashAccountAdjusted}, f.publisher.Types())
}

func TestAbatementService_ClampsOverpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeExpense, "100.00")
	acc := f.account(t, "500.00")
	paidOn := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	req := abatement(o, acc.ID, "150")
	req.PaymentDate = &paidOn
	result, err := f.abatements.RegisterAbatement(ctx, f.cc, req)
	require.NoError(t, err)

	assert.True(t, result.Applied.Equal(dec("100")))
	assert.True(t, result.Requested.Equal(dec("150")))
	assert.True(t, result.Clamped)
	assert.Equal(t, "paid", result.Obligation.Status)
	assert.True(t, result.AccountBalance.Equal(dec("400")))

	stored := f.reload(t, o.ID)
	require.NotNil(t, stored.PaymentDate)
	assert.True(t, stored.PaymentDate.Equal(paidOn))
	assert.True(t, stored.RemainingAmount.IsZero())

	sum, err := f.payments.SumByObligation(ctx, f.cc.CompanyID, o.ID)
	require.NoError(t, err)
	assert.True(t, sum.Total.Equal(stored.PaidAmount))

	assert.Contains(t, f.publisher.Types(), finance.EventTypeObligationSettled)
	count, err := testutil.GatherAndCount(f.metrics.Registry(), "settlement_abatements_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAbatementService_SettledObligationRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeIncome, "80.00")
	acc := f.account(t, "0")

	_, err := f.abatements.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, "80"))
	require.NoError(t, err)

	_, err = f.abatements.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, "10"))
	require.Error(t, err)
	assert.Equal(t, finance.CodeObligationSettled, shared.ErrorCode(err))

	history, err := f.payments.FindByObligation(ctx, f.cc.CompanyID, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("80")))
}

func TestAbatementService_Validation(t *testing.T) {
	f := newFixture(t)
	o := f.obligation(t, finance.ObligationTypeIncome, "100.00")
	acc := f.account(t, "0")

	tests := []struct {
		name   string
		mutate func(r *RegisterAbatementRequest)
		code   string
	}{
		{"zero amount", func(r *RegisterAbatementRequest) { r.Amount = dec("0") }, finance.CodeInvalidAmount},
		{"negative amount", func(r *RegisterAbatementRequest) { r.Amount = dec("-5") }, finance.CodeInvalidAmount},
		{"missing account", func(r *RegisterAbatementRequest) { r.AccountID = uuid.Nil }, finance.CodeAccountRequired},
		{"unknown method", func(r *RegisterAbatementRequest) { r.PaymentMethod = "barter" }, finance.CodeInvalidPaymentMethod},
		{"unknown obligation", func(r *RegisterAbatementRequest) { r.ObligationID = uuid.New() }, shared.CodeNotFound},
		{"unknown account", func(r *RegisterAbatementRequest) { r.AccountID = uuid.New() }, shared.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := abatement(o, acc.ID, "10")
			tt.mutate(&req)
			_, err := f.abatements.RegisterAbatement(context.Background(), f.cc, req)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.ErrorCode(err))

			stored := f.reload(t, o.ID)
			assert.True(t, stored.PaidAmount.IsZero())
			assert.Equal(t, finance.ObligationStatusPending, stored.Status)
		})
	}

	t.Run("missing company", func(t *testing.T) {
		_, err := f.abatements.RegisterAbatement(context.Background(), shared.CompanyContext{}, abatement(o, acc.ID, "10"))
		assert.Equal(t, "COMPANY_REQUIRED", shared.ErrorCode(err))
	})
}

// ==================== Atomicity ====================

func TestAbatementService_InactiveAccountRollsBackObligation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeIncome, "100.00")
	acc := f.account(t, "0")
	_, err := f.accounts.Update(ctx, f.cc.CompanyID, acc.ID, map[string]any{"is_active": false})
	require.NoError(t, err)

	_, err = f.abatements.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, "30"))
	require.Error(t, err)
	assert.Equal(t, finance.CodeAccountInactive, shared.ErrorCode(err))

	stored := f.reload(t, o.ID)
	assert.True(t, stored.PaidAmount.IsZero())
	assert.Equal(t, o.Version, stored.Version)
	assert.Empty(t, f.publisher.Types())
}

// racingObligations bumps the stored version right after the service loads
// an obligation, as a concurrent writer would.
type racingObligations struct {
	finance.ObligationRepository
	race func(ctx context.Context, o *finance.Obligation)
}

func (r *racingObligations) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.Obligation, error) {
	o, err := r.ObligationRepository.FindByIDForCompany(ctx, companyID, id)
	if err == nil && r.race != nil {
		r.race(ctx, o)
		r.race = nil
	}
	return o, err
}

func TestAbatementService_ConcurrentWriteIsDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeIncome, "100.00")
	acc := f.account(t, "0")

	racing := &racingObligations{
		ObligationRepository: f.obligations,
		race: func(ctx context.Context, o *finance.Obligation) {
			_, err := f.obligations.Update(ctx, o.CompanyID, o.ID, map[string]any{"notes": "edited elsewhere"})
			require.NoError(t, err)
		},
	}
	svc := NewAbatementService(f.runner, racing, f.accounts, f.payments, f.sales, nil)

	_, err := svc.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, "30"))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored := f.reload(t, o.ID)
	assert.True(t, stored.PaidAmount.IsZero())
	assert.True(t, f.balance(t, acc.ID).IsZero())

	history, err := f.payments.FindByObligation(ctx, f.cc.CompanyID, o.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// ==================== Idempotency ====================

func TestAbatementService_RetryWithSameOperationID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeIncome, "100.00")
	acc := f.account(t, "0")

	req := abatement(o, acc.ID, "25")
	req.OperationID = "pay-7f3a"

	first, err := f.abatements.RegisterAbatement(ctx, f.cc, req)
	require.NoError(t, err)
	second, err := f.abatements.RegisterAbatement(ctx, f.cc, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.PaymentEventID, second.PaymentEventID)
	assert.True(t, second.Applied.Equal(dec("25")))

	stored := f.reload(t, o.ID)
	assert.True(t, stored.PaidAmount.Equal(dec("25")))
	assert.True(t, f.balance(t, acc.ID).Equal(dec("25")))

	history, err := f.payments.FindByObligation(ctx, f.cc.CompanyID, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "pay-7f3a", history[0].OperationID)
}

// ==================== Sale sync ====================

func TestAbatementService_UpdatesLinkedSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.sale(t, "300.00")
	acc := f.account(t, "0")

	o, err := finance.NewObligation(f.cc.CompanyID, finance.ObligationTypeIncome, "Parcela 1/3", dec("100"), time.Now())
	require.NoError(t, err)
	o.AttachToSale(sale.ID)
	require.NoError(t, f.obligations.Create(ctx, o))

	_, err = f.abatements.RegisterAbatement(ctx, f.cc, abatement(o, acc.ID, "100"))
	require.NoError(t, err)

	stored, err := f.sales.FindByIDForCompany(ctx, f.cc.CompanyID, sale.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(dec("100")))
	assert.True(t, stored.RemainingAmount.Equal(dec("200")))
	assert.Equal(t, "parcial", string(stored.PaymentStatus))
}

// ==================== Receipts ====================

func TestAbatementService_ReceiptKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeExpense, "100.00")
	acc := f.account(t, "100")

	t.Run("rejects key of another company", func(t *testing.T) {
		req := abatement(o, acc.ID, "10")
		req.ReceiptKey = "receipts/" + uuid.NewString() + "/2024/01/x.pdf"
		_, err := f.abatements.RegisterAbatement(ctx, f.cc, req)
		assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
	})

	t.Run("rejects key never uploaded", func(t *testing.T) {
		req := abatement(o, acc.ID, "10")
		req.ReceiptKey = "receipts/" + f.cc.CompanyID.String() + "/2024/01/missing.pdf"
		_, err := f.abatements.RegisterAbatement(ctx, f.cc, req)
		assert.Equal(t, CodeReceiptNotFound, shared.ErrorCode(err))
	})

	t.Run("stores uploaded key", func(t *testing.T) {
		upload, err := f.receipts.RequestUpload(ctx, f.cc, ReceiptUploadRequest{
			FileName: "nota.pdf", ContentType: "application/pdf", Size: 2048,
		})
		require.NoError(t, err)

		req := abatement(o, acc.ID, "10")
		req.ReceiptKey = upload.Key
		result, err := f.abatements.RegisterAbatement(ctx, f.cc, req)
		require.NoError(t, err)

		history, err := f.payments.FindByObligation(ctx, f.cc.CompanyID, o.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, result.PaymentEventID, history[0].ID)
		assert.Equal(t, upload.Key, history[0].ReceiptKey)
	})
}

// ==================== Acting user ====================

type fixedDirectory struct{ name string }

func (d fixedDirectory) DisplayName(context.Context, uuid.UUID) (string, error) {
	return d.name, nil
}

func TestAbatementService_ResolvesResponsibleFromDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.obligation(t, finance.ObligationTypeIncome, "50.00")
	acc := f.account(t, "0")
	f.abatements.SetUserDirectory(fixedDirectory{name: "João Lima"})

	cc := f.cc
	cc.UserName = ""
	_, err := f.abatements.RegisterAbatement(ctx, cc, abatement(o, acc.ID, "5"))
	require.NoError(t, err)

	history, err := f.payments.FindByObligation(ctx, f.cc.CompanyID, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "João Lima", history[0].Responsible)
}
