package trade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

type fixture struct {
	sales       *persistence.GormSaleRepository
	withdrawals *persistence.GormWithdrawalEventRepository
	quotes      *persistence.GormQuoteRepository
	obligations *persistence.GormObligationRepository
	accounts    *persistence.GormCashAccountRepository
	payments    *persistence.GormPaymentEventRepository
	publisher   *recordingPublisher
	metrics     *metrics.Ledger

	saleSvc       *SaleService
	withdrawalSvc *WithdrawalService
	quoteSvc      *QuoteService
	cc            shared.CompanyContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	runner := operation.NewRunner(db, persistence.NewGormOperationLog(db), nil, operation.WithIdempotencyStore(store))

	f := &fixture{
		sales:       persistence.NewGormSaleRepository(db),
		withdrawals: persistence.NewGormWithdrawalEventRepository(db),
		quotes:      persistence.NewGormQuoteRepository(db),
		obligations: persistence.NewGormObligationRepository(db),
		accounts:    persistence.NewGormCashAccountRepository(db),
		payments:    persistence.NewGormPaymentEventRepository(db),
		publisher:   &recordingPublisher{},
		metrics:     metrics.NewLedger(),
	}
	f.saleSvc = NewSaleService(runner, f.sales, f.withdrawals, f.obligations, f.accounts, f.payments, nil)
	f.saleSvc.SetEventPublisher(f.publisher)
	f.saleSvc.SetMetrics(f.metrics)
	f.withdrawalSvc = NewWithdrawalService(runner, f.sales, f.withdrawals, nil)
	f.withdrawalSvc.SetEventPublisher(f.publisher)
	f.withdrawalSvc.SetMetrics(f.metrics)
	f.quoteSvc = NewQuoteService(runner, f.quotes, f.sales, nil)
	f.quoteSvc.SetEventPublisher(f.publisher)
	f.quoteSvc.SetMetrics(f.metrics)

	cc, err := shared.NewCompanyContext(uuid.New(), "Depósito Norte", uuid.New(), "João Lima")
	require.NoError(t, err)
	f.cc = cc
	return f
}

func (f *fixture) account(t *testing.T, initial string) *finance.CashAccount {
	t.Helper()
	a, err := finance.NewCashAccount(f.cc.CompanyID, "Caixa loja", dec(initial))
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func line(productID uuid.UUID, name, qty, price string) SaleLineInput {
	return SaleLineInput{ProductID: productID, ProductName: name, Unit: "un", Quantity: dec(qty), UnitPrice: dec(price)}
}
