package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/erp/settlement/internal/application/finance"
	identityapp "github.com/erp/settlement/internal/application/identity"
	"github.com/erp/settlement/internal/application/operation"
	tradeapp "github.com/erp/settlement/internal/application/trade"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/event"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/scheduler"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Settlement Ledger API
//	@version		1.0
//	@description	Receivables, payables, abatements, withdrawals and quote conversion
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	finance.SettlementEpsilon = cfg.Ledger.Epsilon
	trade.PaymentTolerance = cfg.Ledger.Epsilon

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	logExport, err := telemetry.NewLogExporter(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logExport.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log export", zap.Error(err))
		}
	}()
	if logExport.IsEnabled() {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		log = logExport.Bridge(log, level)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracer.IsEnabled() {
		tracer.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.DBName = cfg.Database.DBName
		dbTracing.LogFullSQL = !cfg.App.IsProduction()
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	ledger := metrics.NewLedger()
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := ledger.RegisterDB(sqlDB, cfg.Database.DBName); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}
	}

	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotency.Close()
	}()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = client.Close()
		}()
		blacklist = auth.NewRedisTokenBlacklist(client)
	}

	var objects financeapp.ReceiptStorage
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3ObjectStorage(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize receipt storage", zap.Error(err))
		}
		objects = s3
	} else {
		log.Info("Storage bucket not configured, using stub receipt storage")
		objects = storage.NewStubObjectStorage("")
	}

	formatter, err := financeapp.NewAmountFormatter(cfg.Ledger.Locale, cfg.Ledger.Currency)
	if err != nil {
		log.Fatal("Invalid ledger locale", zap.Error(err))
	}

	// Event bus: every committed ledger event goes to the journal, once
	serializer := event.NewLedgerSerializer()
	bus := event.NewInMemoryEventBus(log, event.WithDeliveryObserver(ledger))
	journal := event.NewJournalHandler(serializer, log)
	bus.Subscribe(event.NewIdempotentHandler(journal, idempotency, log), journal.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := bus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Repositories
	obligationRepo := persistence.NewGormObligationRepository(db)
	accountRepo := persistence.NewGormCashAccountRepository(db)
	paymentRepo := persistence.NewGormPaymentEventRepository(db)
	saleRepo := persistence.NewGormSaleRepository(db)
	withdrawalRepo := persistence.NewGormWithdrawalEventRepository(db)
	quoteRepo := persistence.NewGormQuoteRepository(db)
	userRepo := persistence.NewGormUserRepository(db)

	runner := operation.NewRunner(db, persistence.NewGormOperationLog(db), log,
		operation.WithIdempotencyStore(idempotency),
		operation.WithMarkerTTL(cfg.Ledger.OperationTTL),
	)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)

	receiptService := financeapp.NewReceiptService(objects, cfg.Storage.MaxReceiptSize, cfg.Storage.PresignExpiry, log)
	accountService := financeapp.NewCashAccountService(accountRepo, paymentRepo, log)

	obligationService := financeapp.NewObligationService(runner, obligationRepo, paymentRepo, log)
	obligationService.SetEventPublisher(bus)

	abatementService := financeapp.NewAbatementService(runner, obligationRepo, accountRepo, paymentRepo, saleRepo, log)
	abatementService.SetEventPublisher(bus)
	abatementService.SetMetrics(ledger)
	abatementService.SetUserDirectory(authService)
	abatementService.SetReceiptService(receiptService)
	abatementService.SetAmountFormatter(formatter)

	installmentService := financeapp.NewInstallmentService(runner, obligationRepo, log)
	installmentService.SetEventPublisher(bus)
	installmentService.SetMetrics(ledger)

	saleService := tradeapp.NewSaleService(runner, saleRepo, withdrawalRepo, obligationRepo, accountRepo, paymentRepo, log)
	saleService.SetEventPublisher(bus)
	saleService.SetMetrics(ledger)
	saleService.SetUserDirectory(authService)

	withdrawalService := tradeapp.NewWithdrawalService(runner, saleRepo, withdrawalRepo, log)
	withdrawalService.SetEventPublisher(bus)
	withdrawalService.SetMetrics(ledger)
	withdrawalService.SetUserDirectory(authService)

	quoteService := tradeapp.NewQuoteService(runner, quoteRepo, saleRepo, log)
	quoteService.SetEventPublisher(bus)
	quoteService.SetMetrics(ledger)

	// Background reconciliation sweep
	if cfg.Scheduler.Enabled {
		reconciler := scheduler.NewScheduler(cfg.Scheduler,
			scheduler.NewReconciliationExecutor(accountService, ledger, log), log)
		if err := reconciler.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}
		trigger := scheduler.NewIntervalTrigger(cfg.Scheduler.Interval, reconciler, accountRepo, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = trigger.Stop(stopCtx)
			if err := reconciler.Stop(stopCtx); err != nil {
				log.Error("Error stopping reconciliation scheduler", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	health := handler.NewHealthHandler(version).AddCheck("database", db)
	if pinger, ok := idempotency.(handler.Pinger); ok {
		health.AddCheck("redis", pinger)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.EngineConfig{
		HTTP:        cfg.HTTP,
		JWT:         jwtService,
		Blacklist:   blacklist,
		Metrics:     ledger,
		Logger:      log,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     cfg.Telemetry.Enabled,
		Profiling:   cfg.Telemetry.ProfilingEnabled,
		Swagger:     !cfg.App.IsProduction(),
	}, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Obligations:  handler.NewObligationHandler(obligationService, abatementService, receiptService),
		Accounts:     handler.NewCashAccountHandler(accountService),
		Installments: handler.NewInstallmentHandler(installmentService),
		Receipts:     handler.NewReceiptHandler(receiptService),
		Sales:        handler.NewSaleHandler(saleService, withdrawalService),
		Quotes:       handler.NewQuoteHandler(quoteService),
		Health:       health,
	})
	defer engine.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
