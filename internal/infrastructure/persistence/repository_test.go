package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/identity"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newObligation(t *testing.T, companyID uuid.UUID, typ finance.ObligationType, total string, due time.Time) *finance.Obligation {
	t.Helper()
	o, err := finance.NewObligation(companyID, typ, "Parcela venda", dec(total), due)
	require.NoError(t, err)
	return o
}

func newSale(t *testing.T, companyID uuid.UUID, number string) *trade.Sale {
	t.Helper()
	line, err := trade.NewSaleLine(uuid.New(), "Cimento CP-II", "sc", dec("10"), dec("32.50"), decimal.Zero)
	require.NoError(t, err)
	s, err := trade.NewSale(companyID, number, uuid.New(), "Ana", trade.SaleLines{line}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	return s
}

func TestGormObligationRepository_CreateAndFind(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormObligationRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	o := newObligation(t, companyID, finance.ObligationTypeIncome, "150.00", time.Now().UTC().AddDate(0, 1, 0))
	require.NoError(t, repo.Create(ctx, o))

	found, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	assert.True(t, found.TotalAmount.Equal(dec("150")))
	assert.Equal(t, finance.ObligationStatusPending, found.Status)
	assert.True(t, found.IsActive)

	_, err = repo.FindByIDForCompany(ctx, uuid.New(), o.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormObligationRepository_SaveWithLock(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormObligationRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	o := newObligation(t, companyID, finance.ObligationTypeIncome, "100.00", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, o))

	t.Run("persists abatement", func(t *testing.T) {
		loaded, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
		require.NoError(t, err)
		_, err = loaded.ApplyAbatement(dec("40"), time.Now(), uuid.New())
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		reloaded, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.PaidAmount.Equal(dec("40")))
		assert.True(t, reloaded.RemainingAmount.Equal(dec("60")))
		assert.Equal(t, finance.ObligationStatusPartial, reloaded.Status)
		assert.Equal(t, loaded.Version, reloaded.Version)
	})

	t.Run("stale copy is rejected", func(t *testing.T) {
		first, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
		require.NoError(t, err)
		second, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
		require.NoError(t, err)

		_, err = first.ApplyAbatement(dec("10"), time.Now(), uuid.New())
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, first))

		_, err = second.ApplyAbatement(dec("10"), time.Now(), uuid.New())
		require.NoError(t, err)
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("deactivation persists false", func(t *testing.T) {
		loaded, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Deactivate())
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		reloaded, err := repo.FindByIDForCompany(ctx, companyID, o.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.IsActive)
	})
}

func TestGormObligationRepository_Filter(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormObligationRepository(db)
	ctx := context.Background()
	companyID := uuid.New()
	past := time.Now().UTC().AddDate(0, 0, -10)
	future := time.Now().UTC().AddDate(0, 0, 10)

	income := newObligation(t, companyID, finance.ObligationTypeIncome, "10", past)
	expense := newObligation(t, companyID, finance.ObligationTypeExpense, "20", future)
	other := newObligation(t, uuid.New(), finance.ObligationTypeIncome, "30", past)
	require.NoError(t, repo.BulkCreate(ctx, []*finance.Obligation{income, expense, other}))

	t.Run("list is company scoped", func(t *testing.T) {
		items, total, err := repo.List(ctx, companyID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})

	t.Run("equality criteria", func(t *testing.T) {
		items, total, err := repo.Filter(ctx, companyID, shared.Criteria{"type": finance.ObligationTypeExpense}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, expense.ID, items[0].ID)
	})

	t.Run("membership criteria", func(t *testing.T) {
		ids := []uuid.UUID{income.ID, other.ID}
		items, _, err := repo.Filter(ctx, companyID, shared.Criteria{"id": ids}, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, income.ID, items[0].ID)
	})

	t.Run("empty membership matches nothing", func(t *testing.T) {
		items, total, err := repo.Filter(ctx, companyID, shared.Criteria{"id": []uuid.UUID{}}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)
	})

	t.Run("unknown criteria key is rejected", func(t *testing.T) {
		_, _, err := repo.Filter(ctx, companyID, shared.Criteria{"password": "x"}, shared.DefaultFilter())
		assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
	})

	t.Run("overdue filter", func(t *testing.T) {
		items, total, err := repo.Search(ctx, companyID, finance.ObligationFilter{Filter: shared.DefaultFilter(), Overdue: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, income.ID, items[0].ID)
	})

	t.Run("search matches description", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Search = "PARCELA"
		_, total, err := repo.List(ctx, companyID, f)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})
}

func TestGormObligationRepository_Update(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormObligationRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	o := newObligation(t, companyID, finance.ObligationTypeExpense, "80", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, o))

	t.Run("merges whitelisted fields and bumps version", func(t *testing.T) {
		updated, err := repo.Update(ctx, companyID, o.ID, map[string]any{"notes": "boleto enviado", "counterparty": "Fornecedor X"})
		require.NoError(t, err)
		assert.Equal(t, "boleto enviado", updated.Notes)
		assert.Equal(t, "Fornecedor X", updated.Counterparty)
		assert.Equal(t, o.Version+1, updated.Version)
		assert.True(t, updated.TotalAmount.Equal(dec("80")))
	})

	t.Run("rejects amount fields", func(t *testing.T) {
		_, err := repo.Update(ctx, companyID, o.ID, map[string]any{"paid_amount": "80"})
		assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
	})

	t.Run("other company gets not found", func(t *testing.T) {
		_, err := repo.Update(ctx, uuid.New(), o.ID, map[string]any{"notes": "x"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormObligationRepository_FindBySale(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormObligationRepository(db)
	ctx := context.Background()
	companyID := uuid.New()
	saleID := uuid.New()

	plans, err := finance.PlanInstallments(dec("100"), 3, time.Now().UTC())
	require.NoError(t, err)
	obligations, err := finance.NewInstallmentObligations(companyID, finance.ObligationTypeIncome, "Venda VD-1", plans, &saleID, nil)
	require.NoError(t, err)
	require.NoError(t, repo.BulkCreate(ctx, []*finance.Obligation{obligations[2], obligations[0], obligations[1]}))

	found, err := repo.FindBySale(ctx, companyID, saleID)
	require.NoError(t, err)
	require.Len(t, found, 3)
	for i, o := range found {
		assert.Equal(t, i+1, o.InstallmentNumber)
	}
	assert.True(t, found[2].TotalAmount.Equal(dec("33.34")))
}

func TestDatabase_RunInTx_RollsBackAllWrites(t *testing.T) {
	db := newTestDatabase(t)
	obligations := NewGormObligationRepository(db)
	payments := NewGormPaymentEventRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	o := newObligation(t, companyID, finance.ObligationTypeIncome, "50", time.Now().UTC())
	require.NoError(t, obligations.Create(ctx, o))

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		loaded, err := obligations.FindByIDForCompany(ctx, companyID, o.ID)
		if err != nil {
			return err
		}
		accountID := uuid.New()
		if _, err := loaded.ApplyAbatement(dec("50"), time.Now(), accountID); err != nil {
			return err
		}
		if err := obligations.SaveWithLock(ctx, loaded); err != nil {
			return err
		}
		ev, err := finance.NewPaymentEvent(loaded, dec("50"), time.Now(), accountID, finance.PaymentMethodPix, "Ana")
		if err != nil {
			return err
		}
		if err := payments.Create(ctx, ev); err != nil {
			return err
		}
		return errors.New("account update failed")
	})
	require.Error(t, err)

	reloaded, err := obligations.FindByIDForCompany(ctx, companyID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.ObligationStatusPending, reloaded.Status)
	assert.True(t, reloaded.PaidAmount.IsZero())

	sum, err := payments.SumByObligation(ctx, companyID, o.ID)
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
	assert.True(t, sum.Total.IsZero())
}

func TestGormPaymentEventRepository(t *testing.T) {
	db := newTestDatabase(t)
	obligations := NewGormObligationRepository(db)
	payments := NewGormPaymentEventRepository(db)
	ctx := context.Background()
	companyID := uuid.New()
	accountID := uuid.New()

	income := newObligation(t, companyID, finance.ObligationTypeIncome, "100", time.Now().UTC())
	expense := newObligation(t, companyID, finance.ObligationTypeExpense, "30", time.Now().UTC())
	require.NoError(t, obligations.BulkCreate(ctx, []*finance.Obligation{income, expense}))

	for _, p := range []struct {
		o      *finance.Obligation
		amount string
		opID   string
	}{
		{income, "40", "op-1"},
		{income, "60", "op-2"},
		{expense, "30", "op-3"},
	} {
		ev, err := finance.NewPaymentEvent(p.o, dec(p.amount), time.Now(), accountID, finance.PaymentMethodCash, "Caixa")
		require.NoError(t, err)
		require.NoError(t, payments.Create(ctx, ev.WithOperation(p.opID)))
	}

	t.Run("sum by obligation", func(t *testing.T) {
		sum, err := payments.SumByObligation(ctx, companyID, income.ID)
		require.NoError(t, err)
		assert.True(t, sum.Total.Equal(dec("100")))
		assert.Equal(t, int64(2), sum.Count)
	})

	t.Run("history is oldest first", func(t *testing.T) {
		events, err := payments.FindByObligation(ctx, companyID, income.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "op-1", events[0].OperationID)
	})

	t.Run("find by operation", func(t *testing.T) {
		ev, err := payments.FindByOperation(ctx, companyID, "op-3")
		require.NoError(t, err)
		assert.Equal(t, expense.ID, ev.ObligationID)

		_, err = payments.FindByOperation(ctx, companyID, "missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("totals by account split by type", func(t *testing.T) {
		totals, err := payments.TotalsByAccount(ctx, companyID, accountID)
		require.NoError(t, err)
		assert.True(t, totals.Income.Equal(dec("100")))
		assert.True(t, totals.Expense.Equal(dec("30")))
		assert.Equal(t, int64(3), totals.Count)
	})
}

func TestGormCashAccountRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormCashAccountRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	a, err := finance.NewCashAccount(companyID, "Caixa Loja", dec("500"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, a))

	loaded, err := repo.FindByIDForCompany(ctx, companyID, a.ID)
	require.NoError(t, err)
	_, err = loaded.PostAbatement(finance.ObligationTypeExpense, dec("120.50"))
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	reloaded, err := repo.FindByIDForCompany(ctx, companyID, a.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CurrentBalance.Equal(dec("379.5")))
	assert.True(t, reloaded.InitialBalance.Equal(dec("500")))

	other, err := finance.NewCashAccount(uuid.New(), "Caixa Filial", dec("0"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, other))
	second, err := finance.NewCashAccount(companyID, "Banco", dec("10"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, second))

	ids, err := repo.CompanyIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{companyID, other.CompanyID}, ids)
}

func TestGormSaleRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormSaleRepository(db)
	withdrawals := NewGormWithdrawalEventRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("generates sequential numbers per company and day", func(t *testing.T) {
		first, err := repo.GenerateSaleNumber(ctx, companyID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(first, "VD-"+time.Now().Format("20060102")+"-"))
		assert.True(t, strings.HasSuffix(first, "-00001"))

		require.NoError(t, repo.Create(ctx, newSale(t, companyID, first)))

		second, err := repo.GenerateSaleNumber(ctx, companyID)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(second, "-00002"))

		otherCompany, err := repo.GenerateSaleNumber(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(otherCompany, "-00001"))
	})

	t.Run("items array round trips through withdrawal", func(t *testing.T) {
		s := newSale(t, companyID, "VD-TEST-1")
		require.NoError(t, repo.Create(ctx, s))

		loaded, err := repo.FindByIDForCompany(ctx, companyID, s.ID)
		require.NoError(t, err)
		line, err := loaded.Withdraw(s.Items[0].ProductID, dec("4"))
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, loaded))
		require.NoError(t, withdrawals.Create(ctx, trade.NewWithdrawalEvent(loaded, *line, dec("4"), "Ana", "")))

		reloaded, err := repo.FindByIDForCompany(ctx, companyID, s.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.Items[0].QuantityWithdrawn.Equal(dec("4")))
		assert.Equal(t, trade.WithdrawalStatusPartial, reloaded.WithdrawalStatus)

		events, err := withdrawals.FindBySale(ctx, companyID, s.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, events[0].Quantity.Equal(dec("4")))
	})

	t.Run("search by withdrawal status", func(t *testing.T) {
		status := trade.WithdrawalStatusPartial
		items, total, err := repo.Search(ctx, companyID, trade.SaleFilter{Filter: shared.DefaultFilter(), WithdrawalStatus: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "VD-TEST-1", items[0].Number)
	})
}

func TestGormQuoteRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	number, err := repo.GenerateQuoteNumber(ctx, companyID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "OR-"))

	line, err := trade.NewSaleLine(uuid.New(), "Areia", "m3", dec("2"), dec("90"), decimal.Zero)
	require.NoError(t, err)
	q, err := trade.NewQuote(companyID, number, uuid.New(), "Bruno", trade.SaleLines{line}, decimal.Zero, dec("15"), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, q))

	loaded, err := repo.FindByIDForCompany(ctx, companyID, q.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.ChangeStatus(trade.QuoteStatusApproved))
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	status := trade.QuoteStatusApproved
	items, total, err := repo.Search(ctx, companyID, trade.QuoteFilter{Filter: shared.DefaultFilter(), Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, items[0].Total.Equal(dec("195")))
}

func TestGormUserRepository(t *testing.T) {
	identity.PasswordCost = 4
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	u, err := identity.NewUser("Carla Souza", "Carla@Example.com", "segredo123", identity.RoleAdmin)
	require.NoError(t, err)
	companyID := uuid.New()
	u.GrantCompany(companyID, "Matriz")
	require.NoError(t, repo.Create(ctx, u))

	found, err := repo.FindByEmail(ctx, "  CARLA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.True(t, found.VerifyPassword("segredo123"))

	require.NoError(t, found.SelectCompany(companyID))
	require.NoError(t, repo.Update(ctx, found))

	reloaded, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.SelectedCompanyID)
	assert.Equal(t, companyID, *reloaded.SelectedCompanyID)
	assert.Equal(t, "Matriz", reloaded.SelectedCompanyName)

	err = repo.Create(ctx, u)
	assert.Error(t, err)
}

func TestGormOperationLog(t *testing.T) {
	db := newTestDatabase(t)
	log := NewGormOperationLog(db)
	ctx := context.Background()
	companyID := uuid.New()

	op, err := shared.NewOperation(companyID, "key-1", "abatement")
	require.NoError(t, err)
	require.NoError(t, log.Save(ctx, op))

	resultID := uuid.New()
	op.Complete(resultID)
	require.NoError(t, log.Save(ctx, op))

	found, err := log.Find(ctx, companyID, "key-1")
	require.NoError(t, err)
	assert.True(t, found.IsCompleted())
	require.NotNil(t, found.ResultRef)
	assert.Equal(t, resultID, *found.ResultRef)

	_, err = log.Find(ctx, uuid.New(), "key-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
