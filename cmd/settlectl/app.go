package main

import (
	"context"
	"fmt"

	appfinance "github.com/erp/settlement/internal/application/finance"
	appidentity "github.com/erp/settlement/internal/application/identity"
	"github.com/erp/settlement/internal/application/operation"
	apptrade "github.com/erp/settlement/internal/application/trade"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// app holds the services a command drives
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *persistence.Database
	store     shared.IdempotencyStore
	formatter *appfinance.AmountFormatter

	auth       *appidentity.AuthService
	accounts   *appfinance.CashAccountService
	abatements *appfinance.AbatementService
	sales      *apptrade.SaleService
	quotes     *apptrade.QuoteService
}

type bootstrapFunc func(ctx context.Context) (*app, error)

// bootstrap loads configuration and connects to the configured database
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel("warn")))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return newApp(ctx, cfg, db, log)
}

// newApp wires the services over an open database
func newApp(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) (*app, error) {
	finance.SettlementEpsilon = cfg.Ledger.Epsilon
	trade.PaymentTolerance = cfg.Ledger.Epsilon

	formatter, err := appfinance.NewAmountFormatter(cfg.Ledger.Locale, cfg.Ledger.Currency)
	if err != nil {
		return nil, err
	}
	store, err := cache.NewIdempotencyStore(ctx, cfg.Redis,
		cache.WithLogger(log), cache.WithInMemoryFallback(true))
	if err != nil {
		return nil, fmt.Errorf("initializing idempotency store: %w", err)
	}

	runner := operation.NewRunner(db, persistence.NewGormOperationLog(db), log,
		operation.WithIdempotencyStore(store),
		operation.WithMarkerTTL(cfg.Ledger.OperationTTL),
	)

	obligations := persistence.NewGormObligationRepository(db)
	accounts := persistence.NewGormCashAccountRepository(db)
	payments := persistence.NewGormPaymentEventRepository(db)
	sales := persistence.NewGormSaleRepository(db)
	withdrawals := persistence.NewGormWithdrawalEventRepository(db)
	quotes := persistence.NewGormQuoteRepository(db)

	a := &app{cfg: cfg, log: log, db: db, store: store, formatter: formatter}
	a.auth = appidentity.NewAuthService(persistence.NewGormUserRepository(db), auth.NewJWTService(cfg.JWT), nil, log)
	a.accounts = appfinance.NewCashAccountService(accounts, payments, log)
	a.abatements = appfinance.NewAbatementService(runner, obligations, accounts, payments, sales, log)
	a.abatements.SetAmountFormatter(formatter)
	a.abatements.SetUserDirectory(a.auth)
	a.sales = apptrade.NewSaleService(runner, sales, withdrawals, obligations, accounts, payments, log)
	a.sales.SetUserDirectory(a.auth)
	a.quotes = apptrade.NewQuoteService(runner, quotes, sales, log)
	return a, nil
}

// Close releases the store and database
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing idempotency store", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}
