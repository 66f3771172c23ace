package finance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	db          *persistence.Database
	obligations *persistence.GormObligationRepository
	accounts    *persistence.GormCashAccountRepository
	payments    *persistence.GormPaymentEventRepository
	sales       *persistence.GormSaleRepository
	runner      *operation.Runner
	publisher   *recordingPublisher
	metrics     *metrics.Ledger
	storage     *storage.StubObjectStorage
	receipts    *ReceiptService
	abatements  *AbatementService
	cc          shared.CompanyContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		db:          db,
		obligations: persistence.NewGormObligationRepository(db),
		accounts:    persistence.NewGormCashAccountRepository(db),
		payments:    persistence.NewGormPaymentEventRepository(db),
		sales:       persistence.NewGormSaleRepository(db),
		publisher:   &recordingPublisher{},
		metrics:     metrics.NewLedger(),
		storage:     storage.NewStubObjectStorage("http://files.test"),
	}
	f.runner = operation.NewRunner(db, persistence.NewGormOperationLog(db), nil, operation.WithIdempotencyStore(store))
	f.receipts = NewReceiptService(f.storage, 0, time.Minute, nil)
	f.abatements = NewAbatementService(f.runner, f.obligations, f.accounts, f.payments, f.sales, nil)
	f.abatements.SetEventPublisher(f.publisher)
	f.abatements.SetMetrics(f.metrics)
	f.abatements.SetReceiptService(f.receipts)

	cc, err := shared.NewCompanyContext(uuid.New(), "Loja Centro", uuid.New(), "Maria Souza")
	require.NoError(t, err)
	f.cc = cc
	return f
}

func (f *fixture) obligation(t *testing.T, typ finance.ObligationType, total string) *finance.Obligation {
	t.Helper()
	o, err := finance.NewObligation(f.cc.CompanyID, typ, "Conta de luz", dec(total), time.Now().UTC().AddDate(0, 0, 10))
	require.NoError(t, err)
	require.NoError(t, f.obligations.Create(context.Background(), o))
	o.ClearDomainEvents()
	return o
}

func (f *fixture) account(t *testing.T, initial string) *finance.CashAccount {
	t.Helper()
	a, err := finance.NewCashAccount(f.cc.CompanyID, "Caixa", dec(initial))
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func (f *fixture) sale(t *testing.T, total string) *trade.Sale {
	t.Helper()
	line, err := trade.NewSaleLine(uuid.New(), "Tijolo", "un", dec("1"), dec(total), decimal.Zero)
	require.NoError(t, err)
	s, err := trade.NewSale(f.cc.CompanyID, "VEN-000001", uuid.New(), "Ana", trade.SaleLines{line}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.sales.Create(context.Background(), s))
	return s
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *finance.Obligation {
	t.Helper()
	o, err := f.obligations.FindByIDForCompany(context.Background(), f.cc.CompanyID, id)
	require.NoError(t, err)
	return o
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	a, err := f.accounts.FindByIDForCompany(context.Background(), f.cc.CompanyID, id)
	require.NoError(t, err)
	return a.CurrentBalance
}
