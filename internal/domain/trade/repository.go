package trade

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleFilter defines filtering options for sale queries
type SaleFilter struct {
	shared.Filter
	ClientID         *uuid.UUID
	PaymentStatus    *PaymentStatus
	WithdrawalStatus *WithdrawalStatus
	From             *time.Time
	To               *time.Time
}

// SaleRepository persists sales
type SaleRepository interface {
	shared.RecordStore[Sale]

	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Sale, error)
	Search(ctx context.Context, companyID uuid.UUID, filter SaleFilter) ([]Sale, int64, error)
	// SaveWithLock persists the whole items array with an optimistic version check
	SaveWithLock(ctx context.Context, sale *Sale) error
	GenerateSaleNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}

// WithdrawalEventRepository stores withdrawal audit records
type WithdrawalEventRepository interface {
	Create(ctx context.Context, event *WithdrawalEvent) error
	FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]WithdrawalEvent, error)
}

// QuoteFilter defines filtering options for quote queries
type QuoteFilter struct {
	shared.Filter
	ClientID *uuid.UUID
	Status   *QuoteStatus
}

// QuoteRepository persists quotes
type QuoteRepository interface {
	shared.RecordStore[Quote]

	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Quote, error)
	Search(ctx context.Context, companyID uuid.UUID, filter QuoteFilter) ([]Quote, int64, error)
	SaveWithLock(ctx context.Context, quote *Quote) error
	GenerateQuoteNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}
