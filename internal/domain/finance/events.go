package finance

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names raised by the finance context
const (
	EventTypeObligationCreated     = "ObligationCreated"
	EventTypeAbatementApplied      = "AbatementApplied"
	EventTypeObligationSettled     = "ObligationSettled"
	EventTypeObligationDeactivated = "ObligationDeactivated"
	EventTypeCashAccountAdjusted   = "CashAccountAdjusted"

	AggregateTypeObligation  = "Obligation"
	AggregateTypeCashAccount = "CashAccount"
)

// ObligationCreatedEvent is raised when an obligation is created
type ObligationCreatedEvent struct {
	shared.BaseDomainEvent
	ObligationType    ObligationType  `json:"obligation_type"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	DueDate           time.Time       `json:"due_date"`
	InstallmentNumber int             `json:"installment_number,omitempty"`
}

// NewObligationCreatedEvent creates a new ObligationCreatedEvent
func NewObligationCreatedEvent(o *Obligation) *ObligationCreatedEvent {
	return &ObligationCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeObligationCreated, AggregateTypeObligation, o.ID, o.CompanyID),
		ObligationType:    o.Type,
		TotalAmount:       o.TotalAmount,
		DueDate:           o.DueDate,
		InstallmentNumber: o.InstallmentNumber,
	}
}

// AbatementAppliedEvent is raised for every applied payment
type AbatementAppliedEvent struct {
	shared.BaseDomainEvent
	ObligationType  ObligationType   `json:"obligation_type"`
	Amount          decimal.Decimal  `json:"amount"`
	PaidAmount      decimal.Decimal  `json:"paid_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Status          ObligationStatus `json:"status"`
	AccountID       uuid.UUID        `json:"account_id"`
}

// NewAbatementAppliedEvent creates a new AbatementAppliedEvent
func NewAbatementAppliedEvent(o *Obligation, applied decimal.Decimal, accountID uuid.UUID) *AbatementAppliedEvent {
	return &AbatementAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAbatementApplied, AggregateTypeObligation, o.ID, o.CompanyID),
		ObligationType:  o.Type,
		Amount:          applied,
		PaidAmount:      o.PaidAmount,
		RemainingAmount: o.RemainingAmount,
		Status:          o.Status,
		AccountID:       accountID,
	}
}

// ObligationSettledEvent is raised when an obligation becomes paid
type ObligationSettledEvent struct {
	shared.BaseDomainEvent
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentDate *time.Time      `json:"payment_date"`
	SaleID      *uuid.UUID      `json:"sale_id,omitempty"`
}

// NewObligationSettledEvent creates a new ObligationSettledEvent
func NewObligationSettledEvent(o *Obligation) *ObligationSettledEvent {
	return &ObligationSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeObligationSettled, AggregateTypeObligation, o.ID, o.CompanyID),
		TotalAmount:     o.TotalAmount,
		PaymentDate:     o.PaymentDate,
		SaleID:          o.SaleID,
	}
}

// ObligationDeactivatedEvent is raised when an obligation is soft-deactivated
type ObligationDeactivatedEvent struct {
	shared.BaseDomainEvent
	Status ObligationStatus `json:"status"`
}

// NewObligationDeactivatedEvent creates a new ObligationDeactivatedEvent
func NewObligationDeactivatedEvent(o *Obligation) *ObligationDeactivatedEvent {
	return &ObligationDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeObligationDeactivated, AggregateTypeObligation, o.ID, o.CompanyID),
		Status:          o.Status,
	}
}

// CashAccountAdjustedEvent is raised when an abatement moves an account balance
type CashAccountAdjustedEvent struct {
	shared.BaseDomainEvent
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Adjustment      decimal.Decimal `json:"adjustment"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
}

// NewCashAccountAdjustedEvent creates a new CashAccountAdjustedEvent
func NewCashAccountAdjustedEvent(a *CashAccount, previous, adjustment decimal.Decimal) *CashAccountAdjustedEvent {
	return &CashAccountAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashAccountAdjusted, AggregateTypeCashAccount, a.ID, a.CompanyID),
		PreviousBalance: previous,
		Adjustment:      adjustment,
		CurrentBalance:  a.CurrentBalance,
	}
}
