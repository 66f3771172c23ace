package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate root.
// Line items are embedded as a JSONB array.
type SaleModel struct {
	CompanyAggregateModel
	Number           string                 `gorm:"type:varchar(50);not null;index"`
	ClientID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	ClientName       string                 `gorm:"type:varchar(200)"`
	SellerName       string                 `gorm:"type:varchar(100)"`
	Items            trade.SaleLines        `gorm:"type:jsonb;not null;default:'[]'"`
	Subtotal         decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Discount         decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Shipping         decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Total            decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PaidAmount       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	RemainingAmount  decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Status           trade.SaleStatus       `gorm:"type:varchar(20);not null;default:'faturada'"`
	PaymentStatus    trade.PaymentStatus    `gorm:"type:varchar(20);not null;default:'pendente';index"`
	WithdrawalStatus trade.WithdrawalStatus `gorm:"type:varchar(20);not null;default:'aguardando';index"`
	QuoteID          *uuid.UUID             `gorm:"type:uuid;index"`
	SaleDate         time.Time              `gorm:"not null;index"`
	Notes            string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale
func (m *SaleModel) ToDomain() *trade.Sale {
	return &trade.Sale{
		CompanyAggregateRoot: m.ToDomainCompanyAggregateRoot(),
		Number:               m.Number,
		ClientID:             m.ClientID,
		ClientName:           m.ClientName,
		SellerName:           m.SellerName,
		Items:                m.Items,
		Subtotal:             m.Subtotal,
		Discount:             m.Discount,
		Shipping:             m.Shipping,
		Total:                m.Total,
		PaidAmount:           m.PaidAmount,
		RemainingAmount:      m.RemainingAmount,
		Status:               m.Status,
		PaymentStatus:        m.PaymentStatus,
		WithdrawalStatus:     m.WithdrawalStatus,
		QuoteID:              m.QuoteID,
		SaleDate:             m.SaleDate,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Sale
func (m *SaleModel) FromDomain(s *trade.Sale) {
	m.FromDomainCompanyAggregateRoot(s.CompanyAggregateRoot)
	m.Number = s.Number
	m.ClientID = s.ClientID
	m.ClientName = s.ClientName
	m.SellerName = s.SellerName
	m.Items = s.Items
	m.Subtotal = s.Subtotal
	m.Discount = s.Discount
	m.Shipping = s.Shipping
	m.Total = s.Total
	m.PaidAmount = s.PaidAmount
	m.RemainingAmount = s.RemainingAmount
	m.Status = s.Status
	m.PaymentStatus = s.PaymentStatus
	m.WithdrawalStatus = s.WithdrawalStatus
	m.QuoteID = s.QuoteID
	m.SaleDate = s.SaleDate
	m.Notes = s.Notes
}

// SaleModelFromDomain creates a new persistence model from a domain Sale
func SaleModelFromDomain(s *trade.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// WithdrawalEventModel is the persistence model for withdrawal audit records.
type WithdrawalEventModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	WithdrawnAt time.Time       `gorm:"not null"`
	Responsible string          `gorm:"type:varchar(100)"`
	Notes       string          `gorm:"type:text"`
	OperationID string          `gorm:"type:varchar(128)"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WithdrawalEventModel) TableName() string {
	return "withdrawal_events"
}

// ToDomain converts the persistence model to a domain WithdrawalEvent
func (m *WithdrawalEventModel) ToDomain() *trade.WithdrawalEvent {
	return &trade.WithdrawalEvent{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		SaleID:      m.SaleID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		WithdrawnAt: m.WithdrawnAt,
		Responsible: m.Responsible,
		Notes:       m.Notes,
		OperationID: m.OperationID,
		CreatedAt:   m.CreatedAt,
	}
}

// WithdrawalEventModelFromDomain creates a persistence model from a domain WithdrawalEvent
func WithdrawalEventModelFromDomain(e *trade.WithdrawalEvent) *WithdrawalEventModel {
	return &WithdrawalEventModel{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		SaleID:      e.SaleID,
		ProductID:   e.ProductID,
		ProductName: e.ProductName,
		Quantity:    e.Quantity,
		WithdrawnAt: e.WithdrawnAt,
		Responsible: e.Responsible,
		Notes:       e.Notes,
		OperationID: e.OperationID,
		CreatedAt:   e.CreatedAt,
	}
}

// QuoteModel is the persistence model for the Quote aggregate root.
type QuoteModel struct {
	CompanyAggregateModel
	Number          string            `gorm:"type:varchar(50);not null;index"`
	ClientID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	ClientName      string            `gorm:"type:varchar(200)"`
	SellerName      string            `gorm:"type:varchar(100)"`
	Items           trade.SaleLines   `gorm:"type:jsonb;not null;default:'[]'"`
	Subtotal        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Discount        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Shipping        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Total           decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	ValidUntil      *time.Time        `gorm:"type:date"`
	Status          trade.QuoteStatus `gorm:"type:varchar(20);not null;default:'rascunho';index"`
	ConvertedSaleID *uuid.UUID        `gorm:"type:uuid"`
	ConvertedAt     *time.Time
	Notes           string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote
func (m *QuoteModel) ToDomain() *trade.Quote {
	return &trade.Quote{
		CompanyAggregateRoot: m.ToDomainCompanyAggregateRoot(),
		Number:               m.Number,
		ClientID:             m.ClientID,
		ClientName:           m.ClientName,
		SellerName:           m.SellerName,
		Items:                m.Items,
		Subtotal:             m.Subtotal,
		Discount:             m.Discount,
		Shipping:             m.Shipping,
		Total:                m.Total,
		ValidUntil:           m.ValidUntil,
		Status:               m.Status,
		ConvertedSaleID:      m.ConvertedSaleID,
		ConvertedAt:          m.ConvertedAt,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Quote
func (m *QuoteModel) FromDomain(q *trade.Quote) {
	m.FromDomainCompanyAggregateRoot(q.CompanyAggregateRoot)
	m.Number = q.Number
	m.ClientID = q.ClientID
	m.ClientName = q.ClientName
	m.SellerName = q.SellerName
	m.Items = q.Items
	m.Subtotal = q.Subtotal
	m.Discount = q.Discount
	m.Shipping = q.Shipping
	m.Total = q.Total
	m.ValidUntil = q.ValidUntil
	m.Status = q.Status
	m.ConvertedSaleID = q.ConvertedSaleID
	m.ConvertedAt = q.ConvertedAt
	m.Notes = q.Notes
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote
func QuoteModelFromDomain(q *trade.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}
