package finance

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CashAccountService manages cash accounts and their reconciliation
type CashAccountService struct {
	accounts finance.CashAccountRepository
	payments finance.PaymentEventRepository
	logger   *zap.Logger
}

// NewCashAccountService creates a new CashAccountService
func NewCashAccountService(accounts finance.CashAccountRepository, payments finance.PaymentEventRepository, logger *zap.Logger) *CashAccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashAccountService{accounts: accounts, payments: payments, logger: logger}
}

// Create opens a cash account
func (s *CashAccountService) Create(ctx context.Context, cc shared.CompanyContext, req CreateCashAccountRequest) (*CashAccountResponse, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	a, err := finance.NewCashAccount(cc.CompanyID, req.Name, req.InitialBalance)
	if err != nil {
		return nil, err
	}
	if cc.HasUser() {
		a.SetCreatedBy(cc.UserID)
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	resp := ToCashAccountResponse(a)
	return &resp, nil
}

// GetByID returns one cash account
func (s *CashAccountService) GetByID(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (*CashAccountResponse, error) {
	a, err := s.accounts.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToCashAccountResponse(a)
	return &resp, nil
}

// List returns one page of the company's cash accounts
func (s *CashAccountService) List(ctx context.Context, cc shared.CompanyContext, page, pageSize int, search string) ([]CashAccountResponse, int64, error) {
	if err := cc.Validate(); err != nil {
		return nil, 0, err
	}
	filter := pageFilter(page, pageSize, "name", "asc", search)
	items, total, err := s.accounts.List(ctx, cc.CompanyID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]CashAccountResponse, len(items))
	for i := range items {
		out[i] = ToCashAccountResponse(&items[i])
	}
	return out, total, nil
}

// Reconcile recomputes the balance implied by the account's payment history
// and reports any drift from the stored balance.
func (s *CashAccountService) Reconcile(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (*finance.ReconciliationReport, error) {
	a, err := s.accounts.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.payments.TotalsByAccount(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	report := a.Reconcile(totals)
	if !report.Balanced {
		s.logger.Warn("cash account drift detected",
			zap.String("company_id", cc.CompanyID.String()),
			zap.String("account_id", id.String()),
			zap.String("drift", report.Drift.String()))
	}
	return &report, nil
}

// ReconcileAll reconciles every account of the company
func (s *CashAccountService) ReconcileAll(ctx context.Context, cc shared.CompanyContext) ([]finance.ReconciliationReport, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	filter := pageFilter(1, 0, "name", "asc", "")
	filter.PageSize = 0
	accounts, _, err := s.accounts.List(ctx, cc.CompanyID, filter)
	if err != nil {
		return nil, err
	}
	reports := make([]finance.ReconciliationReport, 0, len(accounts))
	for i := range accounts {
		report, err := s.Reconcile(ctx, cc, accounts[i].ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
