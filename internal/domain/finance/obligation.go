package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementEpsilon is the tolerance under which an outstanding balance counts as settled
var SettlementEpsilon = decimal.NewFromFloat(0.005)

// ObligationType distinguishes receivables from payables
type ObligationType string

const (
	ObligationTypeIncome  ObligationType = "income"
	ObligationTypeExpense ObligationType = "expense"
)

// IsValid checks if the obligation type is valid
func (t ObligationType) IsValid() bool {
	return t == ObligationTypeIncome || t == ObligationTypeExpense
}

// Sign returns +1 for income and -1 for expense
func (t ObligationType) Sign() decimal.Decimal {
	if t == ObligationTypeExpense {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// ObligationStatus represents the settlement status of an obligation
type ObligationStatus string

const (
	ObligationStatusPending ObligationStatus = "pending"
	ObligationStatusPartial ObligationStatus = "partial"
	ObligationStatusPaid    ObligationStatus = "paid"
)

// IsValid checks if the status is a valid ObligationStatus
func (s ObligationStatus) IsValid() bool {
	switch s {
	case ObligationStatusPending, ObligationStatusPartial, ObligationStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of ObligationStatus
func (s ObligationStatus) String() string {
	return string(s)
}

// CanApplyPayment returns true if abatements can be applied in this status
func (s ObligationStatus) CanApplyPayment() bool {
	return s == ObligationStatusPending || s == ObligationStatusPartial
}

// DeriveStatus computes the status implied by total and paid amounts:
// paid when the outstanding balance is within SettlementEpsilon,
// partial when something was paid, pending otherwise.
func DeriveStatus(total, paid decimal.Decimal) ObligationStatus {
	if total.Sub(paid).LessThanOrEqual(SettlementEpsilon) {
		return ObligationStatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return ObligationStatusPartial
	}
	return ObligationStatusPending
}

// Obligation is an amount owed (expense) or receivable (income) tracked to
// partial or full settlement. It is never deleted, only status-transitioned
// or deactivated.
type Obligation struct {
	shared.CompanyAggregateRoot
	Description       string           `json:"description"`
	Counterparty      string           `json:"counterparty"`
	Type              ObligationType   `json:"type"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	PaidAmount        decimal.Decimal  `json:"paid_amount"`
	RemainingAmount   decimal.Decimal  `json:"remaining_amount"`
	Status            ObligationStatus `json:"status"`
	DueDate           time.Time        `json:"due_date"`
	PaymentDate       *time.Time       `json:"payment_date"`
	AccountID         *uuid.UUID       `json:"account_id"`
	SaleID            *uuid.UUID       `json:"sale_id"`
	InstallmentNumber int              `json:"installment_number"`
	InstallmentCount  int              `json:"installment_count"`
	Notes             string           `json:"notes"`
	IsActive          bool             `json:"is_active"`
}

// NewObligation creates a new pending obligation
func NewObligation(
	companyID uuid.UUID,
	obligationType ObligationType,
	description string,
	totalAmount decimal.Decimal,
	dueDate time.Time,
) (*Obligation, error) {
	description = strings.TrimSpace(description)
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if !obligationType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Obligation type must be income or expense")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot be empty")
	}
	if len(description) > 255 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 255 characters")
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Total amount must be positive")
	}
	if totalAmount.LessThanOrEqual(SettlementEpsilon) {
		return nil, shared.NewDomainError(CodeInvalidAmount,
			fmt.Sprintf("Total amount must exceed the settlement tolerance of %s", SettlementEpsilon.String()))
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	o := &Obligation{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Description:          description,
		Type:                 obligationType,
		TotalAmount:          totalAmount,
		PaidAmount:           decimal.Zero,
		RemainingAmount:      totalAmount,
		Status:               ObligationStatusPending,
		DueDate:              dueDate,
		IsActive:             true,
	}

	o.AddDomainEvent(NewObligationCreatedEvent(o))

	return o, nil
}

// AttachToSale links the obligation to the sale it was invoiced from
func (o *Obligation) AttachToSale(saleID uuid.UUID) {
	if saleID == uuid.Nil {
		return
	}
	o.SaleID = &saleID
}

// SetInstallment records the obligation's position in an installment plan
func (o *Obligation) SetInstallment(number, count int) error {
	if count < 1 || number < 1 || number > count {
		return shared.NewDomainError(CodeInvalidInstallmentCount,
			fmt.Sprintf("Installment %d of %d is not valid", number, count))
	}
	o.InstallmentNumber = number
	o.InstallmentCount = count
	return nil
}

// SetDefaultAccount sets the cash account the obligation is expected to settle against
func (o *Obligation) SetDefaultAccount(accountID uuid.UUID) {
	if accountID == uuid.Nil {
		o.AccountID = nil
		return
	}
	o.AccountID = &accountID
}

// SetNotes replaces the free-text notes
func (o *Obligation) SetNotes(notes string) {
	o.Notes = strings.TrimSpace(notes)
}

// AbatementOutcome describes what an abatement actually did
type AbatementOutcome struct {
	Requested      decimal.Decimal
	Applied        decimal.Decimal
	Clamped        bool
	PreviousStatus ObligationStatus
	Status         ObligationStatus
}

// ApplyAbatement applies a partial or full payment.
// Amounts that would overshoot the total are clamped: the applied amount is
// total - paid and Clamped is set. The payment date is only recorded on the
// obligation once it becomes paid.
func (o *Obligation) ApplyAbatement(amount decimal.Decimal, paymentDate time.Time, accountID uuid.UUID) (*AbatementOutcome, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Abatement amount must be positive")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError(CodeAccountRequired, "A cash account must be selected")
	}
	if !o.IsActive {
		return nil, shared.NewDomainError(CodeObligationInactive, "Cannot apply payment to an inactive obligation")
	}
	if !o.Status.CanApplyPayment() {
		return nil, shared.NewDomainError(CodeObligationSettled,
			fmt.Sprintf("Cannot apply payment to obligation in %s status", o.Status))
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	previous := o.Status
	newPaid := decimal.Min(o.PaidAmount.Add(amount), o.TotalAmount)
	applied := newPaid.Sub(o.PaidAmount)

	o.PaidAmount = newPaid
	o.RemainingAmount = o.TotalAmount.Sub(newPaid)
	o.Status = DeriveStatus(o.TotalAmount, o.PaidAmount)
	if o.Status == ObligationStatusPaid {
		paidOn := paymentDate
		o.PaymentDate = &paidOn
	}

	outcome := &AbatementOutcome{
		Requested:      amount,
		Applied:        applied,
		Clamped:        amount.GreaterThan(applied),
		PreviousStatus: previous,
		Status:         o.Status,
	}

	o.IncrementVersion()
	o.AddDomainEvent(NewAbatementAppliedEvent(o, applied, accountID))
	if o.Status == ObligationStatusPaid {
		o.AddDomainEvent(NewObligationSettledEvent(o))
	}

	return outcome, nil
}

// Deactivate soft-deactivates the obligation
func (o *Obligation) Deactivate() error {
	if !o.IsActive {
		return shared.NewDomainError(CodeObligationInactive, "Obligation is already inactive")
	}
	o.IsActive = false
	o.IncrementVersion()
	o.AddDomainEvent(NewObligationDeactivatedEvent(o))
	return nil
}

// IsOverdue reports whether the obligation is unpaid past its due date
func (o *Obligation) IsOverdue(now time.Time) bool {
	return o.IsActive && o.Status != ObligationStatusPaid && now.After(o.DueDate)
}

// CheckInvariants verifies 0 <= paid <= total and that the status matches the amounts
func (o *Obligation) CheckInvariants() error {
	if o.PaidAmount.IsNegative() || o.PaidAmount.GreaterThan(o.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Paid amount %s outside [0, %s]", o.PaidAmount, o.TotalAmount))
	}
	if expected := DeriveStatus(o.TotalAmount, o.PaidAmount); expected != o.Status {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Status %s does not match amounts, expected %s", o.Status, expected))
	}
	return nil
}
