package seed

import (
	"context"
	"testing"
	"time"

	"github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/application/identity"
	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/application/trade"
	domainidentity "github.com/erp/settlement/internal/domain/identity"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	domainidentity.PasswordCost = bcrypt.MinCost
}

type harness struct {
	seeder   *Seeder
	services Services
	sales    *persistence.GormSaleRepository
	quotes   *persistence.GormQuoteRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := persistence.NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	runner := operation.NewRunner(db, persistence.NewGormOperationLog(db), nil, operation.WithIdempotencyStore(store))

	sales := persistence.NewGormSaleRepository(db)
	quotes := persistence.NewGormQuoteRepository(db)
	obligations := persistence.NewGormObligationRepository(db)
	accounts := persistence.NewGormCashAccountRepository(db)
	payments := persistence.NewGormPaymentEventRepository(db)
	withdrawals := persistence.NewGormWithdrawalEventRepository(db)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "seed-test-secret-key-long-enough",
		AccessTokenExpiration: time.Hour,
		Issuer:                "settlement-test",
	})
	svc := Services{
		Auth:       identity.NewAuthService(persistence.NewGormUserRepository(db), jwtService, nil, nil),
		Accounts:   finance.NewCashAccountService(accounts, payments, nil),
		Abatements: finance.NewAbatementService(runner, obligations, accounts, payments, sales, nil),
		Sales:      trade.NewSaleService(runner, sales, withdrawals, obligations, accounts, payments, nil),
		Quotes:     trade.NewQuoteService(runner, quotes, sales, nil),
	}
	return &harness{seeder: New(svc, nil), services: svc, sales: sales, quotes: quotes}
}

func TestSeeder_Run(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report, err := h.seeder.Run(ctx, Options{Companies: 2, Sales: 5, Seed: 42})
	require.NoError(t, err)
	require.Len(t, report.Companies, 2)

	for _, c := range report.Companies {
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.NotEmpty(t, c.Name)
		// slot 2 of 5 is a quote; a converted quote also counts as a sale
		assert.Equal(t, 1, c.Quotes)
		assert.GreaterOrEqual(t, c.Sales, 4)

		sales, total, err := h.sales.List(ctx, c.ID, shared.Filter{Page: 1, PageSize: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(c.Sales), total)
		for _, s := range sales {
			assert.Equal(t, c.ID, s.CompanyID)
			assert.True(t, s.PaidAmount.LessThanOrEqual(s.Total))
		}

		_, quoteCount, err := h.quotes.List(ctx, c.ID, shared.Filter{Page: 1, PageSize: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(c.Quotes), quoteCount)

		cc, err := shared.NewCompanyContext(c.ID, c.Name, uuid.Nil, "")
		require.NoError(t, err)
		rec, err := h.services.Accounts.Reconcile(ctx, cc, c.AccountID)
		require.NoError(t, err)
		assert.True(t, rec.Balanced, "seeded account must reconcile")
	}

	login, err := h.services.Auth.Login(ctx, identity.LoginRequest{Email: report.AdminEmail, Password: report.AdminPassword})
	require.NoError(t, err)
	assert.Len(t, login.User.Companies, 2)
}

func TestSeeder_Deterministic(t *testing.T) {
	first, err := newHarness(t).seeder.Run(context.Background(), Options{Companies: 3, Sales: 1, Seed: 7})
	require.NoError(t, err)
	second, err := newHarness(t).seeder.Run(context.Background(), Options{Companies: 3, Sales: 1, Seed: 7})
	require.NoError(t, err)

	for i := range first.Companies {
		assert.Equal(t, first.Companies[i].Name, second.Companies[i].Name)
	}
	assert.Equal(t, first.AdminEmail, second.AdminEmail)
}

func TestSeeder_RejectsBadOptions(t *testing.T) {
	h := newHarness(t)

	_, err := h.seeder.Run(context.Background(), Options{Companies: 0})
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))

	_, err = h.seeder.Run(context.Background(), Options{Companies: 1, Sales: -1})
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
}
