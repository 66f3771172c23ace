// Package seed fills a database with plausible companies, sales, quotes and
// payments for demos and load tests.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	appfinance "github.com/erp/settlement/internal/application/finance"
	appidentity "github.com/erp/settlement/internal/application/identity"
	apptrade "github.com/erp/settlement/internal/application/trade"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Services are the use cases the seeder drives
type Services struct {
	Auth       *appidentity.AuthService
	Accounts   *appfinance.CashAccountService
	Abatements *appfinance.AbatementService
	Sales      *apptrade.SaleService
	Quotes     *apptrade.QuoteService
}

// Options controls how much data is generated
type Options struct {
	Companies int
	Sales     int
	Seed      uint64
}

// CompanySummary describes one generated company
type CompanySummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AccountID uuid.UUID `json:"account_id"`
	Sales     int       `json:"sales"`
	Quotes    int       `json:"quotes"`
	Payments  int       `json:"payments"`
}

// Report lists what was generated and the admin credentials
type Report struct {
	AdminEmail    string           `json:"admin_email"`
	AdminPassword string           `json:"admin_password"`
	Companies     []CompanySummary `json:"companies"`
}

// Seeder generates data through the application services, so every row obeys
// the same rules as API traffic.
type Seeder struct {
	svc    Services
	logger *zap.Logger
}

// New creates a Seeder
func New(svc Services, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{svc: svc, logger: logger}
}

// Run generates opts.Companies companies with opts.Sales sales each
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Companies < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "At least one company is required")
	}
	if opts.Sales < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Sales per company cannot be negative")
	}
	faker := gofakeit.New(opts.Seed)

	report := &Report{
		AdminEmail:    fmt.Sprintf("admin+%s@settlement.local", faker.LetterN(6)),
		AdminPassword: faker.Password(true, true, true, false, false, 10) + "a1",
	}
	companies := make([]appidentity.CompanyInfo, 0, opts.Companies)
	for i := 0; i < opts.Companies; i++ {
		summary, err := s.company(ctx, faker, opts.Sales)
		if err != nil {
			return nil, err
		}
		report.Companies = append(report.Companies, *summary)
		companies = append(companies, appidentity.CompanyInfo{ID: summary.ID, Name: summary.Name})
	}

	if s.svc.Auth != nil {
		if _, err := s.svc.Auth.CreateUser(ctx, appidentity.CreateUserRequest{
			FullName:  faker.Name(),
			Email:     report.AdminEmail,
			Password:  report.AdminPassword,
			Role:      "admin",
			Companies: companies,
		}); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	}
	return report, nil
}

func (s *Seeder) company(ctx context.Context, faker *gofakeit.Faker, sales int) (*CompanySummary, error) {
	cc, err := shared.NewCompanyContext(uuid.New(), faker.Company(), uuid.Nil, faker.Name())
	if err != nil {
		return nil, err
	}
	account, err := s.svc.Accounts.Create(ctx, cc, appfinance.CreateCashAccountRequest{
		Name:           "Caixa " + cc.CompanyName,
		InitialBalance: money(faker.Price(100, 5000)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cash account: %w", err)
	}
	summary := &CompanySummary{ID: cc.CompanyID, Name: cc.CompanyName, AccountID: account.ID}

	for i := 0; i < sales; i++ {
		if i%3 == 2 {
			if err := s.quote(ctx, faker, cc, summary); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.sale(ctx, faker, cc, summary); err != nil {
			return nil, err
		}
	}

	s.logger.Info("company seeded",
		zap.String("company_id", cc.CompanyID.String()),
		zap.String("name", cc.CompanyName),
		zap.Int("sales", summary.Sales),
		zap.Int("quotes", summary.Quotes))
	return summary, nil
}

func (s *Seeder) sale(ctx context.Context, faker *gofakeit.Faker, cc shared.CompanyContext, summary *CompanySummary) error {
	items := lines(faker)
	req := apptrade.CreateSaleRequest{
		ClientID:     uuid.New(),
		ClientName:   faker.Name(),
		Items:        items,
		Installments: faker.Number(1, 6),
		AccountID:    &summary.AccountID,
	}
	first := time.Now().AddDate(0, 0, faker.Number(-45, 30))
	req.FirstDueDate = &first
	if faker.Bool() {
		req.DownPayment = &apptrade.DownPaymentInput{
			Amount:        items[0].Quantity.Mul(items[0].UnitPrice).Div(decimal.NewFromInt(2)).Round(2),
			AccountID:     summary.AccountID,
			PaymentMethod: faker.RandomString([]string{"dinheiro", "pix", "cartao_debito"}),
		}
	}
	result, err := s.svc.Sales.Create(ctx, cc, req)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	summary.Sales++

	for _, o := range result.Obligations {
		if o.Status != "pending" || !faker.Bool() {
			continue
		}
		amount := o.TotalAmount
		if faker.Bool() {
			amount = amount.Div(decimal.NewFromInt(2)).Round(2)
		}
		if _, err := s.svc.Abatements.RegisterAbatement(ctx, cc, appfinance.RegisterAbatementRequest{
			ObligationID:  o.ID,
			Amount:        amount,
			AccountID:     summary.AccountID,
			PaymentMethod: "pix",
		}); err != nil {
			return fmt.Errorf("failed to register abatement: %w", err)
		}
		summary.Payments++
	}
	return nil
}

func (s *Seeder) quote(ctx context.Context, faker *gofakeit.Faker, cc shared.CompanyContext, summary *CompanySummary) error {
	validUntil := time.Now().AddDate(0, 0, faker.Number(5, 30))
	q, err := s.svc.Quotes.Create(ctx, cc, apptrade.CreateQuoteRequest{
		ClientID:   uuid.New(),
		ClientName: faker.Name(),
		Items:      lines(faker),
		ValidUntil: &validUntil,
	})
	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}
	summary.Quotes++
	if !faker.Bool() {
		return nil
	}
	if _, err := s.svc.Quotes.ConvertToSale(ctx, cc, q.ID, apptrade.ConvertQuoteRequest{}); err != nil {
		return fmt.Errorf("failed to convert quote: %w", err)
	}
	summary.Sales++
	return nil
}

func lines(faker *gofakeit.Faker) []apptrade.SaleLineInput {
	n := faker.Number(1, 4)
	out := make([]apptrade.SaleLineInput, n)
	for i := range out {
		out[i] = apptrade.SaleLineInput{
			ProductID:   uuid.New(),
			ProductName: faker.ProductName(),
			Unit:        faker.RandomString([]string{"un", "kg", "m", "cx"}),
			Quantity:    decimal.NewFromInt(int64(faker.Number(1, 20))),
			UnitPrice:   money(faker.Price(5, 500)),
		}
	}
	return out
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
