package router

import (
	"time"

	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Auth         *handler.AuthHandler
	Obligations  *handler.ObligationHandler
	Accounts     *handler.CashAccountHandler
	Installments *handler.InstallmentHandler
	Receipts     *handler.ReceiptHandler
	Sales        *handler.SaleHandler
	Quotes       *handler.QuoteHandler
	Health       *handler.HealthHandler
}

// EngineConfig carries the cross-cutting dependencies of the engine
type EngineConfig struct {
	HTTP        config.HTTPConfig
	JWT         *auth.JWTService
	Blacklist   auth.TokenBlacklist
	Metrics     *metrics.Ledger
	Logger      *zap.Logger
	ServiceName string
	Tracing     bool
	Profiling   bool
	Swagger     bool // serve the API docs UI under /swagger
}

// Engine is the assembled gin engine plus the resources it owns
type Engine struct {
	*gin.Engine
	limiter *middleware.RateLimiter
}

// Close releases background resources such as the rate limiter janitor
func (e *Engine) Close() {
	if e.limiter != nil {
		e.limiter.Close()
	}
}

// NewEngine builds the engine. Global middleware runs in this order:
// request id, access log, recovery, security headers, CORS, body limit,
// rate limit, tracing, metrics. API routes add JWT authentication; the
// finance and trade groups add company resolution, span attributes,
// profiling labels and idempotency keys.
func NewEngine(cfg EngineConfig, h Handlers) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	out := &Engine{Engine: engine}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		out.limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		engine.Use(middleware.RateLimit(out.limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = middleware.DefaultTracingConfig().ServiceName
	}
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: serviceName, Enabled: cfg.Tracing}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(cfg.Metrics))

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	jwtConfig := middleware.DefaultJWTConfig(cfg.JWT)
	jwtConfig.TokenBlacklist = cfg.Blacklist
	jwtConfig.Logger = log
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	r.Register(authRoutes(h))

	scoped := []gin.HandlerFunc{
		middleware.CompanyContext(),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{Enabled: cfg.Profiling}),
		middleware.IdempotencyKey(),
	}
	r.Register(financeRoutes(h).Use(scoped...))
	r.Register(tradeRoutes(h).Use(scoped...))
	r.Setup()

	return out
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	return cors
}

func authRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	if h.Auth == nil {
		return g
	}
	g.POST("/login", h.Auth.Login)
	g.GET("/me", h.Auth.Me)
	g.PUT("/me", h.Auth.UpdateMe)
	g.POST("/logout", h.Auth.Logout)
	return g
}

func financeRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")

	if h.Obligations != nil {
		obligations := g.Group("obligations", "/obligations")
		obligations.GET("", h.Obligations.List)
		obligations.POST("", h.Obligations.Create)
		obligations.POST("/filter", h.Obligations.Filter)
		obligations.GET("/:id", h.Obligations.GetByID)
		obligations.POST("/:id/deactivate", h.Obligations.Deactivate)
		obligations.POST("/:id/abatements", h.Obligations.RegisterAbatement)
		obligations.GET("/:id/payments", h.Obligations.Payments)
		obligations.GET("/:id/payments/:paymentId/receipt", h.Obligations.Receipt)
	}

	if h.Installments != nil {
		installments := g.Group("installments", "/installments")
		installments.POST("/preview", h.Installments.Preview)
		installments.POST("", h.Installments.Create)
	}

	if h.Accounts != nil {
		accounts := g.Group("accounts", "/accounts")
		accounts.GET("", h.Accounts.List)
		accounts.POST("", h.Accounts.Create)
		accounts.GET("/:id", h.Accounts.GetByID)
		accounts.GET("/:id/reconcile", h.Accounts.Reconcile)
	}

	if h.Receipts != nil {
		g.POST("/receipts/upload-url", h.Receipts.RequestUpload)
	}
	return g
}

func tradeRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("trade", "/trade")

	if h.Sales != nil {
		sales := g.Group("sales", "/sales")
		sales.GET("", h.Sales.List)
		sales.POST("", h.Sales.Create)
		sales.GET("/:id", h.Sales.GetByID)
		sales.POST("/:id/withdrawals", h.Sales.RegisterWithdrawal)
		sales.GET("/:id/withdrawals", h.Sales.Withdrawals)
	}

	if h.Quotes != nil {
		quotes := g.Group("quotes", "/quotes")
		quotes.GET("", h.Quotes.List)
		quotes.POST("", h.Quotes.Create)
		quotes.GET("/:id", h.Quotes.GetByID)
		quotes.PUT("/:id", h.Quotes.Update)
		quotes.POST("/:id/status", h.Quotes.ChangeStatus)
		quotes.POST("/:id/convert", h.Quotes.Convert)
	}
	return g
}
