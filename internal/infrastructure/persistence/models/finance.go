package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationModel is the persistence model for the Obligation aggregate root.
type ObligationModel struct {
	CompanyAggregateModel
	Description       string                   `gorm:"type:varchar(255);not null"`
	Counterparty      string                   `gorm:"type:varchar(200)"`
	Type              finance.ObligationType   `gorm:"type:varchar(10);not null;index"`
	TotalAmount       decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	PaidAmount        decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	RemainingAmount   decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Status            finance.ObligationStatus `gorm:"type:varchar(10);not null;default:'pending';index"`
	DueDate           time.Time                `gorm:"type:date;not null;index"`
	PaymentDate       *time.Time               `gorm:"type:date"`
	AccountID         *uuid.UUID               `gorm:"type:uuid;index"`
	SaleID            *uuid.UUID               `gorm:"type:uuid;index"`
	InstallmentNumber int                      `gorm:"not null;default:0"`
	InstallmentCount  int                      `gorm:"not null;default:0"`
	Notes             string                   `gorm:"type:text"`
	IsActive          bool                     `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ObligationModel) TableName() string {
	return "obligations"
}

// ToDomain converts the persistence model to a domain Obligation
func (m *ObligationModel) ToDomain() *finance.Obligation {
	return &finance.Obligation{
		CompanyAggregateRoot: m.ToDomainCompanyAggregateRoot(),
		Description:          m.Description,
		Counterparty:         m.Counterparty,
		Type:                 m.Type,
		TotalAmount:          m.TotalAmount,
		PaidAmount:           m.PaidAmount,
		RemainingAmount:      m.RemainingAmount,
		Status:               m.Status,
		DueDate:              m.DueDate,
		PaymentDate:          m.PaymentDate,
		AccountID:            m.AccountID,
		SaleID:               m.SaleID,
		InstallmentNumber:    m.InstallmentNumber,
		InstallmentCount:     m.InstallmentCount,
		Notes:                m.Notes,
		IsActive:             m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Obligation
func (m *ObligationModel) FromDomain(o *finance.Obligation) {
	m.FromDomainCompanyAggregateRoot(o.CompanyAggregateRoot)
	m.Description = o.Description
	m.Counterparty = o.Counterparty
	m.Type = o.Type
	m.TotalAmount = o.TotalAmount
	m.PaidAmount = o.PaidAmount
	m.RemainingAmount = o.RemainingAmount
	m.Status = o.Status
	m.DueDate = o.DueDate
	m.PaymentDate = o.PaymentDate
	m.AccountID = o.AccountID
	m.SaleID = o.SaleID
	m.InstallmentNumber = o.InstallmentNumber
	m.InstallmentCount = o.InstallmentCount
	m.Notes = o.Notes
	m.IsActive = o.IsActive
}

// ObligationModelFromDomain creates a new persistence model from a domain Obligation
func ObligationModelFromDomain(o *finance.Obligation) *ObligationModel {
	m := &ObligationModel{}
	m.FromDomain(o)
	return m
}

// PaymentEventModel is the persistence model for append-only payment events.
type PaymentEventModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	ObligationID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaymentDate   time.Time             `gorm:"type:date;not null"`
	AccountID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentMethod finance.PaymentMethod `gorm:"type:varchar(20);not null"`
	Responsible   string                `gorm:"type:varchar(100)"`
	OperationID   string                `gorm:"type:varchar(128);index"`
	ReceiptKey    string                `gorm:"type:varchar(255)"`
	CreatedAt     time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentEventModel) TableName() string {
	return "payment_events"
}

// ToDomain converts the persistence model to a domain PaymentEvent
func (m *PaymentEventModel) ToDomain() *finance.PaymentEvent {
	return &finance.PaymentEvent{
		ID:            m.ID,
		CompanyID:     m.CompanyID,
		ObligationID:  m.ObligationID,
		Amount:        m.Amount,
		PaymentDate:   m.PaymentDate,
		AccountID:     m.AccountID,
		PaymentMethod: m.PaymentMethod,
		Responsible:   m.Responsible,
		OperationID:   m.OperationID,
		ReceiptKey:    m.ReceiptKey,
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentEventModelFromDomain creates a persistence model from a domain PaymentEvent
func PaymentEventModelFromDomain(e *finance.PaymentEvent) *PaymentEventModel {
	return &PaymentEventModel{
		ID:            e.ID,
		CompanyID:     e.CompanyID,
		ObligationID:  e.ObligationID,
		Amount:        e.Amount,
		PaymentDate:   e.PaymentDate,
		AccountID:     e.AccountID,
		PaymentMethod: e.PaymentMethod,
		Responsible:   e.Responsible,
		OperationID:   e.OperationID,
		ReceiptKey:    e.ReceiptKey,
		CreatedAt:     e.CreatedAt,
	}
}

// CashAccountModel is the persistence model for the CashAccount aggregate root.
type CashAccountModel struct {
	CompanyAggregateModel
	Name           string          `gorm:"type:varchar(100);not null"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive       bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CashAccountModel) TableName() string {
	return "cash_accounts"
}

// ToDomain converts the persistence model to a domain CashAccount
func (m *CashAccountModel) ToDomain() *finance.CashAccount {
	return &finance.CashAccount{
		CompanyAggregateRoot: m.ToDomainCompanyAggregateRoot(),
		Name:                 m.Name,
		InitialBalance:       m.InitialBalance,
		CurrentBalance:       m.CurrentBalance,
		IsActive:             m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain CashAccount
func (m *CashAccountModel) FromDomain(a *finance.CashAccount) {
	m.FromDomainCompanyAggregateRoot(a.CompanyAggregateRoot)
	m.Name = a.Name
	m.InitialBalance = a.InitialBalance
	m.CurrentBalance = a.CurrentBalance
	m.IsActive = a.IsActive
}

// CashAccountModelFromDomain creates a new persistence model from a domain CashAccount
func CashAccountModelFromDomain(a *finance.CashAccount) *CashAccountModel {
	m := &CashAccountModel{}
	m.FromDomain(a)
	return m
}
