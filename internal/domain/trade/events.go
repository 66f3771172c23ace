package trade

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names raised by the trade context
const (
	EventTypeSaleInvoiced             = "SaleInvoiced"
	EventTypeSaleWithdrawalRegistered = "SaleWithdrawalRegistered"
	EventTypeSaleFullyWithdrawn       = "SaleFullyWithdrawn"
	EventTypeQuoteStatusChanged       = "QuoteStatusChanged"
	EventTypeQuoteConverted           = "QuoteConverted"

	AggregateTypeSale  = "Sale"
	AggregateTypeQuote = "Quote"
)

// SaleInvoicedEvent is raised when a sale is created
type SaleInvoicedEvent struct {
	shared.BaseDomainEvent
	Number  string          `json:"number"`
	Total   decimal.Decimal `json:"total"`
	QuoteID *uuid.UUID      `json:"quote_id,omitempty"`
}

// NewSaleInvoicedEvent creates a new SaleInvoicedEvent
func NewSaleInvoicedEvent(s *Sale) *SaleInvoicedEvent {
	return &SaleInvoicedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleInvoiced, AggregateTypeSale, s.ID, s.CompanyID),
		Number:          s.Number,
		Total:           s.Total,
		QuoteID:         s.QuoteID,
	}
}

// SaleWithdrawalRegisteredEvent is raised for every withdrawal
type SaleWithdrawalRegisteredEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID        `json:"product_id"`
	Quantity          decimal.Decimal  `json:"quantity"`
	QuantityWithdrawn decimal.Decimal  `json:"quantity_withdrawn"`
	WithdrawalStatus  WithdrawalStatus `json:"withdrawal_status"`
}

// NewSaleWithdrawalRegisteredEvent creates a new SaleWithdrawalRegisteredEvent
func NewSaleWithdrawalRegisteredEvent(s *Sale, line SaleLine, quantity decimal.Decimal) *SaleWithdrawalRegisteredEvent {
	return &SaleWithdrawalRegisteredEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeSaleWithdrawalRegistered, AggregateTypeSale, s.ID, s.CompanyID),
		ProductID:         line.ProductID,
		Quantity:          quantity,
		QuantityWithdrawn: line.QuantityWithdrawn,
		WithdrawalStatus:  s.WithdrawalStatus,
	}
}

// SaleFullyWithdrawnEvent is raised when every line has been collected
type SaleFullyWithdrawnEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewSaleFullyWithdrawnEvent creates a new SaleFullyWithdrawnEvent
func NewSaleFullyWithdrawnEvent(s *Sale) *SaleFullyWithdrawnEvent {
	return &SaleFullyWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleFullyWithdrawn, AggregateTypeSale, s.ID, s.CompanyID),
		Number:          s.Number,
	}
}

// QuoteStatusChangedEvent is raised on manual quote status changes
type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	From QuoteStatus `json:"from"`
	To   QuoteStatus `json:"to"`
}

// NewQuoteStatusChangedEvent creates a new QuoteStatusChangedEvent
func NewQuoteStatusChangedEvent(q *Quote, from QuoteStatus) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteStatusChanged, AggregateTypeQuote, q.ID, q.CompanyID),
		From:            from,
		To:              q.Status,
	}
}

// QuoteConvertedEvent is raised when a quote becomes a sale
type QuoteConvertedEvent struct {
	shared.BaseDomainEvent
	From   QuoteStatus `json:"from"`
	SaleID uuid.UUID   `json:"sale_id"`
}

// NewQuoteConvertedEvent creates a new QuoteConvertedEvent
func NewQuoteConvertedEvent(q *Quote, from QuoteStatus) *QuoteConvertedEvent {
	return &QuoteConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteConverted, AggregateTypeQuote, q.ID, q.CompanyID),
		From:            from,
		SaleID:          *q.ConvertedSaleID,
	}
}
