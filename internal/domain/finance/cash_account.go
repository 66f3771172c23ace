package finance

import (
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashAccount holds a running balance moved by abatements
type CashAccount struct {
	shared.CompanyAggregateRoot
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
}

// NewCashAccount creates an account whose current balance starts at the initial balance
func NewCashAccount(companyID uuid.UUID, name string, initialBalance decimal.Decimal) (*CashAccount, error) {
	name = strings.TrimSpace(name)
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 100 characters")
	}

	return &CashAccount{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 name,
		InitialBalance:       initialBalance,
		CurrentBalance:       initialBalance,
		IsActive:             true,
	}, nil
}

// PostAbatement moves the balance by +amount for income and -amount for expense
// and returns the signed adjustment.
func (a *CashAccount) PostAbatement(obligationType ObligationType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !a.IsActive {
		return decimal.Zero, shared.NewDomainError(CodeAccountInactive, "Cash account is inactive")
	}
	if !obligationType.IsValid() {
		return decimal.Zero, shared.NewDomainError("INVALID_TYPE", "Obligation type must be income or expense")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError(CodeInvalidAmount, "Adjustment amount must be positive")
	}

	adjustment := amount.Mul(obligationType.Sign())
	previous := a.CurrentBalance
	a.CurrentBalance = a.CurrentBalance.Add(adjustment)
	a.IncrementVersion()
	a.AddDomainEvent(NewCashAccountAdjustedEvent(a, previous, adjustment))

	return adjustment, nil
}

// Deactivate closes the account for further postings
func (a *CashAccount) Deactivate() {
	if !a.IsActive {
		return
	}
	a.IsActive = false
	a.IncrementVersion()
}

// AccountTotals is the sum of abatements posted to one account, split by type
type AccountTotals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Count   int64           `json:"count"`
}

// ReconciliationReport compares an account's stored balance with the balance
// implied by its posted abatements.
type ReconciliationReport struct {
	AccountID       uuid.UUID       `json:"account_id"`
	AccountName     string          `json:"account_name"`
	InitialBalance  decimal.Decimal `json:"initial_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
	Drift           decimal.Decimal `json:"drift"`
	PaymentCount    int64           `json:"payment_count"`
	Balanced        bool            `json:"balanced"`
}

// Reconcile checks current = initial + income - expense
func (a *CashAccount) Reconcile(totals AccountTotals) ReconciliationReport {
	expected := a.InitialBalance.Add(totals.Income).Sub(totals.Expense)
	drift := a.CurrentBalance.Sub(expected)
	return ReconciliationReport{
		AccountID:       a.ID,
		AccountName:     a.Name,
		InitialBalance:  a.InitialBalance,
		CurrentBalance:  a.CurrentBalance,
		ExpectedBalance: expected,
		Drift:           drift,
		PaymentCount:    totals.Count,
		Balanced:        drift.Abs().LessThanOrEqual(SettlementEpsilon),
	}
}
