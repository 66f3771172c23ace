package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentTolerance mirrors the finance settlement epsilon for sale-level payment status
var PaymentTolerance = decimal.NewFromFloat(0.005)

// SaleStatus represents the document status of a sale
type SaleStatus string

const (
	SaleStatusInvoiced SaleStatus = "faturada"
)

// PaymentStatus is the sale-level settlement status
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pendente"
	PaymentStatusPartial PaymentStatus = "parcial"
	PaymentStatusPaid    PaymentStatus = "pago"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// WithdrawalStatus is the sale-level physical collection status
type WithdrawalStatus string

const (
	WithdrawalStatusAwaiting WithdrawalStatus = "aguardando"
	WithdrawalStatusPartial  WithdrawalStatus = "parcial"
	WithdrawalStatusTotal    WithdrawalStatus = "total"
)

// IsValid checks if the withdrawal status is valid
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusAwaiting, WithdrawalStatusPartial, WithdrawalStatusTotal:
		return true
	}
	return false
}

// DeriveWithdrawalStatus returns total when every line is fully withdrawn,
// parcial when any line has something withdrawn, aguardando otherwise.
func DeriveWithdrawalStatus(items SaleLines) WithdrawalStatus {
	if len(items) == 0 {
		return WithdrawalStatusAwaiting
	}
	allDone := true
	anyWithdrawn := false
	for _, l := range items {
		if !l.IsFullyWithdrawn() {
			allDone = false
		}
		if l.QuantityWithdrawn.GreaterThan(decimal.Zero) {
			anyWithdrawn = true
		}
	}
	switch {
	case allDone:
		return WithdrawalStatusTotal
	case anyWithdrawn:
		return WithdrawalStatusPartial
	default:
		return WithdrawalStatusAwaiting
	}
}

// Sale is an invoiced sale with embedded line items
type Sale struct {
	shared.CompanyAggregateRoot
	Number           string           `json:"number"`
	ClientID         uuid.UUID        `json:"client_id"`
	ClientName       string           `json:"client_name"`
	SellerName       string           `json:"seller_name"`
	Items            SaleLines        `json:"items"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	Discount         decimal.Decimal  `json:"discount"`
	Shipping         decimal.Decimal  `json:"shipping"`
	Total            decimal.Decimal  `json:"total"`
	PaidAmount       decimal.Decimal  `json:"paid_amount"`
	RemainingAmount  decimal.Decimal  `json:"remaining_amount"`
	Status           SaleStatus       `json:"status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	WithdrawalStatus WithdrawalStatus `json:"withdrawal_status"`
	QuoteID          *uuid.UUID       `json:"quote_id"`
	SaleDate         time.Time        `json:"sale_date"`
	Notes            string           `json:"notes"`
}

// NewSale creates an invoiced sale with nothing paid or withdrawn
func NewSale(
	companyID uuid.UUID,
	number string,
	clientID uuid.UUID,
	sellerName string,
	items SaleLines,
	discount decimal.Decimal,
	shipping decimal.Decimal,
) (*Sale, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Sale number cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError(CodeInvalidClient, "Client ID cannot be empty")
	}
	subtotal, total, err := computeTotals(items, discount, shipping)
	if err != nil {
		return nil, err
	}

	s := &Sale{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Number:               number,
		ClientID:             clientID,
		SellerName:           strings.TrimSpace(sellerName),
		Items:                items.Clone(),
		Subtotal:             subtotal,
		Discount:             discount,
		Shipping:             shipping,
		Total:                total,
		PaidAmount:           decimal.Zero,
		RemainingAmount:      total,
		Status:               SaleStatusInvoiced,
		PaymentStatus:        PaymentStatusPending,
		WithdrawalStatus:     WithdrawalStatusAwaiting,
		SaleDate:             time.Now(),
	}

	s.AddDomainEvent(NewSaleInvoicedEvent(s))
	return s, nil
}

// NewSaleFromQuote copies a quote's items and totals verbatim into a new sale
func NewSaleFromQuote(q *Quote, number string) (*Sale, error) {
	if q == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quote is required")
	}
	if !q.CanConvert() {
		return nil, shared.NewDomainError(CodeQuoteAlreadyConverted, "Quote has already been converted")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Sale number cannot be empty")
	}
	if len(q.Items) == 0 {
		return nil, shared.NewDomainError(CodeEmptyItems, "Quote has no items")
	}

	quoteID := q.ID
	s := &Sale{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(q.CompanyID),
		Number:               number,
		ClientID:             q.ClientID,
		ClientName:           q.ClientName,
		SellerName:           q.SellerName,
		Items:                q.Items.Clone(),
		Subtotal:             q.Subtotal,
		Discount:             q.Discount,
		Shipping:             q.Shipping,
		Total:                q.Total,
		PaidAmount:           decimal.Zero,
		RemainingAmount:      q.Total,
		Status:               SaleStatusInvoiced,
		PaymentStatus:        PaymentStatusPending,
		WithdrawalStatus:     WithdrawalStatusAwaiting,
		QuoteID:              &quoteID,
		SaleDate:             time.Now(),
		Notes:                q.Notes,
	}

	s.AddDomainEvent(NewSaleInvoicedEvent(s))
	return s, nil
}

// SetClientName sets the display name of the client
func (s *Sale) SetClientName(name string) {
	s.ClientName = strings.TrimSpace(name)
}

// SetNotes sets free-text notes
func (s *Sale) SetNotes(notes string) {
	s.Notes = strings.TrimSpace(notes)
}

// Withdraw records a physical withdrawal of quantity for productID.
// Quantities beyond the line's remaining balance are rejected and leave the
// sale untouched.
func (s *Sale) Withdraw(productID uuid.UUID, quantity decimal.Decimal) (*SaleLine, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(CodeInvalidQuantity, "Withdrawal quantity must be positive")
	}
	idx := s.Items.Find(productID)
	if idx < 0 {
		return nil, shared.NewDomainError(CodeLineNotFound, "Product is not part of this sale")
	}
	line := &s.Items[idx]
	remaining := line.RemainingQuantity()
	if quantity.GreaterThan(remaining) {
		return nil, shared.NewDomainError(CodeWithdrawalExceedsBalance,
			fmt.Sprintf("Requested %s exceeds remaining balance %s for %s", quantity, remaining, line.ProductName))
	}

	line.QuantityWithdrawn = line.QuantityWithdrawn.Add(quantity)
	previous := s.WithdrawalStatus
	s.WithdrawalStatus = DeriveWithdrawalStatus(s.Items)
	s.IncrementVersion()

	s.AddDomainEvent(NewSaleWithdrawalRegisteredEvent(s, *line, quantity))
	if previous != WithdrawalStatusTotal && s.WithdrawalStatus == WithdrawalStatusTotal {
		s.AddDomainEvent(NewSaleFullyWithdrawnEvent(s))
	}

	out := *line
	return &out, nil
}

// RegisterPayment mirrors an abatement applied to one of the sale's
// obligations onto the sale-level totals.
func (s *Sale) RegisterPayment(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	s.PaidAmount = decimal.Min(s.PaidAmount.Add(amount), s.Total)
	s.RemainingAmount = s.Total.Sub(s.PaidAmount)
	s.PaymentStatus = derivePaymentStatus(s.Total, s.PaidAmount)
	s.IncrementVersion()
	return nil
}

func derivePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	if total.Sub(paid).LessThanOrEqual(PaymentTolerance) {
		return PaymentStatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return PaymentStatusPartial
	}
	return PaymentStatusPending
}

// CheckInvariants verifies every line has 0 <= quantity_withdrawn <= quantity
func (s *Sale) CheckInvariants() error {
	for _, l := range s.Items {
		if l.QuantityWithdrawn.IsNegative() || l.QuantityWithdrawn.GreaterThan(l.Quantity) {
			return shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Line %s withdrawn %s outside [0, %s]", l.ProductName, l.QuantityWithdrawn, l.Quantity))
		}
	}
	if s.WithdrawalStatus != DeriveWithdrawalStatus(s.Items) {
		return shared.NewDomainError(shared.CodeInvalidState, "Withdrawal status does not match line balances")
	}
	return nil
}

// WithdrawalEvent is the audit record of one physical withdrawal
type WithdrawalEvent struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   uuid.UUID       `json:"company_id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	WithdrawnAt time.Time       `json:"withdrawn_at"`
	Responsible string          `json:"responsible"`
	Notes       string          `json:"notes"`
	OperationID string          `json:"operation_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewWithdrawalEvent records a withdrawal against a sale line
func NewWithdrawalEvent(s *Sale, line SaleLine, quantity decimal.Decimal, responsible, notes string) *WithdrawalEvent {
	now := time.Now()
	return &WithdrawalEvent{
		ID:          uuid.New(),
		CompanyID:   s.CompanyID,
		SaleID:      s.ID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		Quantity:    quantity,
		WithdrawnAt: now,
		Responsible: strings.TrimSpace(responsible),
		Notes:       strings.TrimSpace(notes),
		CreatedAt:   now,
	}
}
