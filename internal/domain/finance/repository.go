package finance

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationFilter defines filtering options for obligation queries
type ObligationFilter struct {
	shared.Filter
	Type      *ObligationType
	Statuses  []ObligationStatus
	AccountID *uuid.UUID
	SaleID    *uuid.UUID
	DueFrom   *time.Time
	DueTo     *time.Time
	IsActive  *bool
	Overdue   bool
}

// ObligationRepository persists obligations. It embeds the generic record
// store contract; the methods below add typed lookups and version-checked saves.
type ObligationRepository interface {
	shared.RecordStore[Obligation]

	// FindByIDForCompany returns ErrNotFound when the obligation is absent or belongs to another company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Obligation, error)
	// Search applies a typed filter
	Search(ctx context.Context, companyID uuid.UUID, filter ObligationFilter) ([]Obligation, int64, error)
	// FindBySale returns all obligations invoiced from a sale, ordered by installment number
	FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]Obligation, error)
	// SaveWithLock persists with an optimistic version check.
	// Returns ErrConcurrencyConflict when the stored version moved on.
	SaveWithLock(ctx context.Context, obligation *Obligation) error
}

// PaymentEventRepository stores the append-only payment history
type PaymentEventRepository interface {
	Create(ctx context.Context, event *PaymentEvent) error
	FindByObligation(ctx context.Context, companyID, obligationID uuid.UUID) ([]PaymentEvent, error)
	FindByOperation(ctx context.Context, companyID uuid.UUID, operationID string) (*PaymentEvent, error)
	SumByObligation(ctx context.Context, companyID, obligationID uuid.UUID) (PaymentSum, error)
	TotalsByAccount(ctx context.Context, companyID, accountID uuid.UUID) (AccountTotals, error)
}

// PaymentSum is the aggregate of an obligation's payment history
type PaymentSum struct {
	ObligationID uuid.UUID
	Total        decimal.Decimal
	Count        int64
}

// CashAccountRepository persists cash accounts
type CashAccountRepository interface {
	shared.RecordStore[CashAccount]

	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*CashAccount, error)
	SaveWithLock(ctx context.Context, account *CashAccount) error
}
