package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "rascunho"
	QuoteStatusSent      QuoteStatus = "enviado"
	QuoteStatusApproved  QuoteStatus = "aprovado"
	QuoteStatusRejected  QuoteStatus = "recusado"
	QuoteStatusConverted QuoteStatus = "convertido"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusApproved, QuoteStatusRejected, QuoteStatusConverted:
		return true
	}
	return false
}

// CanTransitionTo checks manual status changes. Conversion is not a manual
// transition; it only happens through MarkConverted.
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusSent || target == QuoteStatusApproved || target == QuoteStatusRejected
	case QuoteStatusSent:
		return target == QuoteStatusApproved || target == QuoteStatusRejected || target == QuoteStatusDraft
	case QuoteStatusApproved:
		return target == QuoteStatusRejected
	case QuoteStatusRejected:
		return target == QuoteStatusDraft
	case QuoteStatusConverted:
		return false
	}
	return false
}

// Quote is a priced proposal that can be converted once into a sale
type Quote struct {
	shared.CompanyAggregateRoot
	Number          string          `json:"number"`
	ClientID        uuid.UUID       `json:"client_id"`
	ClientName      string          `json:"client_name"`
	SellerName      string          `json:"seller_name"`
	Items           SaleLines       `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	ValidUntil      *time.Time      `json:"valid_until"`
	Status          QuoteStatus     `json:"status"`
	ConvertedSaleID *uuid.UUID      `json:"converted_sale_id"`
	ConvertedAt     *time.Time      `json:"converted_at"`
	Notes           string          `json:"notes"`
}

// NewQuote creates a draft quote
func NewQuote(
	companyID uuid.UUID,
	number string,
	clientID uuid.UUID,
	sellerName string,
	items SaleLines,
	discount decimal.Decimal,
	shipping decimal.Decimal,
	validUntil *time.Time,
) (*Quote, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Quote number cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError(CodeInvalidClient, "Client ID cannot be empty")
	}
	subtotal, total, err := computeTotals(items, discount, shipping)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Number:               number,
		ClientID:             clientID,
		SellerName:           strings.TrimSpace(sellerName),
		Items:                items.Clone(),
		Subtotal:             subtotal,
		Discount:             discount,
		Shipping:             shipping,
		Total:                total,
		ValidUntil:           validUntil,
		Status:               QuoteStatusDraft,
	}
	return q, nil
}

// SetClientName sets the display name of the client
func (q *Quote) SetClientName(name string) {
	q.ClientName = strings.TrimSpace(name)
}

// SetNotes sets free-text notes
func (q *Quote) SetNotes(notes string) {
	q.Notes = strings.TrimSpace(notes)
}

// CanModify reports whether items and totals may still be edited
func (q *Quote) CanModify() bool {
	return q.Status == QuoteStatusDraft || q.Status == QuoteStatusSent
}

// Revise replaces items, discount, shipping and validity and recomputes totals
func (q *Quote) Revise(items SaleLines, discount, shipping decimal.Decimal, validUntil *time.Time) error {
	if !q.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot modify quote in %s status", q.Status))
	}
	subtotal, total, err := computeTotals(items, discount, shipping)
	if err != nil {
		return err
	}
	q.Items = items.Clone()
	q.Subtotal = subtotal
	q.Discount = discount
	q.Shipping = shipping
	q.Total = total
	q.ValidUntil = validUntil
	q.IncrementVersion()
	return nil
}

// ChangeStatus applies a manual status transition
func (q *Quote) ChangeStatus(target QuoteStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quote status is not valid")
	}
	if q.Status == QuoteStatusConverted {
		return shared.NewDomainError(CodeQuoteAlreadyConverted, "Quote has already been converted")
	}
	if !q.Status.CanTransitionTo(target) {
		return shared.NewDomainError(CodeInvalidStatusTransition,
			fmt.Sprintf("Cannot change quote from %s to %s", q.Status, target))
	}
	previous := q.Status
	q.Status = target
	q.IncrementVersion()
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, previous))
	return nil
}

// CanConvert reports whether the quote may become a sale. Any status except
// convertido is accepted.
func (q *Quote) CanConvert() bool {
	return q.Status != QuoteStatusConverted
}

// IsExpired reports whether the validity date has passed
func (q *Quote) IsExpired(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// MarkConverted records the one-way transition to convertido
func (q *Quote) MarkConverted(saleID uuid.UUID) error {
	if saleID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Sale ID cannot be empty")
	}
	if !q.CanConvert() {
		return shared.NewDomainError(CodeQuoteAlreadyConverted, "Quote has already been converted")
	}
	now := time.Now()
	previous := q.Status
	q.Status = QuoteStatusConverted
	q.ConvertedSaleID = &saleID
	q.ConvertedAt = &now
	q.IncrementVersion()
	q.AddDomainEvent(NewQuoteConvertedEvent(q, previous))
	return nil
}
