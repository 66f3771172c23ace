package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/application/identity"
	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/application/trade"
	domainidentity "github.com/erp/settlement/internal/domain/identity"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	domainidentity.PasswordCost = bcrypt.MinCost
}

const (
	testEmail    = "caixa@loja.example"
	testPassword = "senha-forte-1"
)

type server struct {
	engine    *Engine
	companyID uuid.UUID
}

func newServer(t *testing.T) *server {
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
		Secret:                "engine-test-secret-key-long-enough",
		AccessTokenExpiration: time.Hour,
		Issuer:                "settlement-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	authService := identity.NewAuthService(persistence.NewGormUserRepository(db), jwtService, blacklist, nil)

	receipts := finance.NewReceiptService(storage.NewStubObjectStorage(""), 5<<20, 15*time.Minute, nil)
	abatements := finance.NewAbatementService(runner, obligations, accounts, payments, sales, nil)
	abatements.SetReceiptService(receipts)
	abatements.SetUserDirectory(authService)
	ledger := metrics.NewLedger()

	h := Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Obligations:  handler.NewObligationHandler(finance.NewObligationService(runner, obligations, payments, nil), abatements, receipts),
		Accounts:     handler.NewCashAccountHandler(finance.NewCashAccountService(accounts, payments, nil)),
		Installments: handler.NewInstallmentHandler(finance.NewInstallmentService(runner, obligations, nil)),
		Receipts:     handler.NewReceiptHandler(receipts),
		Sales: handler.NewSaleHandler(
			trade.NewSaleService(runner, sales, withdrawals, obligations, accounts, payments, nil),
			trade.NewWithdrawalService(runner, sales, withdrawals, nil),
		),
		Quotes: handler.NewQuoteHandler(trade.NewQuoteService(runner, quotes, sales, nil)),
		Health: handler.NewHealthHandler("test").AddCheck("database", db),
	}
	engine := NewEngine(EngineConfig{
		HTTP:      config.HTTPConfig{MaxBodySize: 1 << 20},
		JWT:       jwtService,
		Blacklist: blacklist,
		Metrics:   ledger,
	}, h)
	t.Cleanup(engine.Close)

	companyID := uuid.New()
	_, err = authService.CreateUser(context.Background(), identity.CreateUserRequest{
		FullName:  "Marta Caixa",
		Email:     testEmail,
		Password:  testPassword,
		Role:      "user",
		Companies: []identity.CompanyInfo{{ID: companyID, Name: "Loja Centro"}},
	})
	require.NoError(t, err)

	return &server{engine: engine, companyID: companyID}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *server) do(t *testing.T, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *server) login(t *testing.T) string {
	t.Helper()
	w, env := s.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result identity.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.AccessToken)
	return result.AccessToken
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestEngine_HealthAndMetrics(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = s.do(t, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "settlement_http_requests_total")

	w, _ = s.do(t, "GET", "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngine_RequiresAuthentication(t *testing.T) {
	s := newServer(t)

	w, env := s.do(t, "GET", "/api/v1/finance/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TOKEN", env.Error.Code)

	w, env = s.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    testEmail,
		"password": "wrong-password-9",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestEngine_SaleLifecycle(t *testing.T) {
	s := newServer(t)
	token := s.login(t)

	w, env := s.do(t, "POST", "/api/v1/finance/accounts", token, map[string]any{
		"name":            "Caixa principal",
		"initial_balance": "100.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	account := decode[finance.CashAccountResponse](t, env)
	assert.Equal(t, "Caixa principal", account.Name)

	productID := uuid.New()
	w, env = s.do(t, "POST", "/api/v1/trade/sales", token, map[string]any{
		"client_id":   uuid.New(),
		"client_name": "Joana Lima",
		"items": []map[string]any{{
			"product_id":   productID,
			"product_name": "Cimento 50kg",
			"unit":         "sc",
			"quantity":     "10",
			"unit_price":   "30.00",
		}},
		"installments":   3,
		"first_due_date": time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
		"account_id":     account.ID,
	}, "Idempotency-Key", "sale-001")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode[trade.SaleResult](t, env)
	require.Len(t, sale.Obligations, 3)
	assert.Equal(t, "300", sale.Sale.Total.String())

	// same key answers the stored result
	w, env = s.do(t, "POST", "/api/v1/trade/sales", token, map[string]any{
		"client_id": uuid.New(),
		"items": []map[string]any{{
			"product_id": uuid.New(), "product_name": "Outro", "quantity": "1", "unit_price": "1",
		}},
	}, "Idempotency-Key", "sale-001")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, sale.Sale.ID, decode[trade.SaleResult](t, env).Sale.ID)

	w, env = s.do(t, "GET", "/api/v1/finance/obligations?sale_id="+sale.Sale.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]finance.ObligationResponse](t, env), 3)

	w, _ = s.do(t, "GET", "/api/v1/finance/obligations?sale_id=nope", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	first := sale.Obligations[0]
	abate := map[string]any{
		"amount":         first.RemainingAmount.String(),
		"account_id":     account.ID,
		"payment_method": "pix",
	}
	w, env = s.do(t, "POST", "/api/v1/finance/obligations/"+first.ID.String()+"/abatements", token, abate, "Idempotency-Key", "pay-001")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[finance.AbatementResult](t, env)
	assert.Equal(t, "paid", result.Obligation.Status)
	assert.Equal(t, "Marta Caixa", mustPayments(t, s, token, first.ID)[0].Responsible)

	w, env = s.do(t, "POST", "/api/v1/finance/obligations/"+first.ID.String()+"/abatements", token, abate, "Idempotency-Key", "pay-001")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[finance.AbatementResult](t, env).Replayed)
	assert.Len(t, mustPayments(t, s, token, first.ID), 1)

	w, env = s.do(t, "GET", "/api/v1/finance/accounts/"+account.ID.String()+"/reconcile", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"balanced":true`)

	w, env = s.do(t, "POST", "/api/v1/trade/sales/"+sale.Sale.ID.String()+"/withdrawals", token, map[string]any{
		"product_id": productID,
		"quantity":   "4",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "parcial", decode[trade.WithdrawalResult](t, env).Sale.WithdrawalStatus)

	w, env = s.do(t, "POST", "/api/v1/trade/sales/"+sale.Sale.ID.String()+"/withdrawals", token, map[string]any{
		"product_id": productID,
		"quantity":   "7",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "WITHDRAWAL_EXCEEDS_BALANCE", env.Error.Code)

	w, env = s.do(t, "GET", "/api/v1/trade/sales/"+sale.Sale.ID.String()+"/withdrawals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]trade.WithdrawalEventResponse](t, env), 1)
}

func mustPayments(t *testing.T, s *server, token string, obligationID uuid.UUID) []finance.PaymentEventResponse {
	t.Helper()
	w, env := s.do(t, "GET", "/api/v1/finance/obligations/"+obligationID.String()+"/payments", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[finance.PaymentHistoryResponse](t, env).Payments
}

func TestEngine_QuoteConversion(t *testing.T) {
	s := newServer(t)
	token := s.login(t)

	w, env := s.do(t, "POST", "/api/v1/trade/quotes", token, map[string]any{
		"client_id": uuid.New(),
		"items": []map[string]any{{
			"product_id": uuid.New(), "product_name": "Areia m3", "quantity": "2", "unit_price": "120.00",
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quote := decode[trade.QuoteResponse](t, env)
	assert.Equal(t, "rascunho", quote.Status)

	w, _ = s.do(t, "POST", "/api/v1/trade/quotes/"+quote.ID.String()+"/status", token, map[string]string{"status": "aprovado"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, "POST", "/api/v1/trade/quotes/"+quote.ID.String()+"/convert", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	converted := decode[trade.ConversionResult](t, env)
	assert.Equal(t, "convertido", converted.Quote.Status)
	assert.Equal(t, "240", converted.Sale.Total.String())

	w, env = s.do(t, "POST", "/api/v1/trade/quotes/"+quote.ID.String()+"/convert", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "QUOTE_ALREADY_CONVERTED", env.Error.Code)
}

func TestEngine_ReceiptUploadAndInstallmentPreview(t *testing.T) {
	s := newServer(t)
	token := s.login(t)

	w, env := s.do(t, "POST", "/api/v1/finance/receipts/upload-url", token, map[string]any{
		"file_name":    "comprovante.pdf",
		"content_type": "application/pdf",
		"size":         1024,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	upload := decode[finance.ReceiptUploadResponse](t, env)
	assert.Contains(t, upload.Key, s.companyID.String())

	w, env = s.do(t, "POST", "/api/v1/finance/installments/preview", token, map[string]any{
		"type":           "expense",
		"description":    "Aluguel",
		"amount":         "100.00",
		"count":          3,
		"first_due_date": time.Now().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[finance.InstallmentPreview](t, env)
	require.Len(t, preview.Installments, 3)
	assert.Equal(t, "100", preview.Total.String())
}

func TestEngine_LogoutRevokesToken(t *testing.T) {
	s := newServer(t)
	token := s.login(t)

	w, _ := s.do(t, "GET", "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, "POST", "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env := s.do(t, "GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", env.Error.Code)
}
