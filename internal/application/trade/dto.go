package trade

import (
	"time"

	appfinance "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Lines =====================

// SaleLineInput is one product row of a sale or quote request
type SaleLineInput struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required,min=1,max=200"`
	Unit        string          `json:"unit" binding:"max=20"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
}

// SaleLineResponse represents a line in API responses
type SaleLineResponse struct {
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Unit              string          `json:"unit,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	QuantityWithdrawn decimal.Decimal `json:"quantity_withdrawn"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
}

func toLines(inputs []SaleLineInput) (trade.SaleLines, error) {
	lines := make(trade.SaleLines, 0, len(inputs))
	for _, in := range inputs {
		line, err := trade.NewSaleLine(in.ProductID, in.ProductName, in.Unit, in.Quantity, in.UnitPrice, in.Discount)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func toLineResponses(lines trade.SaleLines) []SaleLineResponse {
	out := make([]SaleLineResponse, len(lines))
	for i, l := range lines {
		out[i] = SaleLineResponse{
			ProductID:         l.ProductID,
			ProductName:       l.ProductName,
			Unit:              l.Unit,
			Quantity:          l.Quantity,
			QuantityWithdrawn: l.QuantityWithdrawn,
			RemainingQuantity: l.RemainingQuantity(),
			UnitPrice:         l.UnitPrice,
			Discount:          l.Discount,
			Total:             l.Total,
		}
	}
	return out
}

// ===================== Sales =====================

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID               uuid.UUID          `json:"id"`
	CompanyID        uuid.UUID          `json:"company_id"`
	Number           string             `json:"number"`
	ClientID         uuid.UUID          `json:"client_id"`
	ClientName       string             `json:"client_name,omitempty"`
	SellerName       string             `json:"seller_name"`
	Items            []SaleLineResponse `json:"items"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Discount         decimal.Decimal    `json:"discount"`
	Shipping         decimal.Decimal    `json:"shipping"`
	Total            decimal.Decimal    `json:"total"`
	PaidAmount       decimal.Decimal    `json:"paid_amount"`
	RemainingAmount  decimal.Decimal    `json:"remaining_amount"`
	Status           string             `json:"status"`
	PaymentStatus    string             `json:"payment_status"`
	WithdrawalStatus string             `json:"withdrawal_status"`
	QuoteID          *uuid.UUID         `json:"quote_id,omitempty"`
	SaleDate         time.Time          `json:"sale_date"`
	Notes            string             `json:"notes,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Version          int                `json:"version"`
}

// ToSaleResponse converts a domain sale
func ToSaleResponse(s *trade.Sale) SaleResponse {
	return SaleResponse{
		ID:               s.ID,
		CompanyID:        s.CompanyID,
		Number:           s.Number,
		ClientID:         s.ClientID,
		ClientName:       s.ClientName,
		SellerName:       s.SellerName,
		Items:            toLineResponses(s.Items),
		Subtotal:         s.Subtotal,
		Discount:         s.Discount,
		Shipping:         s.Shipping,
		Total:            s.Total,
		PaidAmount:       s.PaidAmount,
		RemainingAmount:  s.RemainingAmount,
		Status:           string(s.Status),
		PaymentStatus:    string(s.PaymentStatus),
		WithdrawalStatus: string(s.WithdrawalStatus),
		QuoteID:          s.QuoteID,
		SaleDate:         s.SaleDate,
		Notes:            s.Notes,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		Version:          s.Version,
	}
}

// ToSaleResponses converts a slice of sales
func ToSaleResponses(items []trade.Sale) []SaleResponse {
	out := make([]SaleResponse, len(items))
	for i := range items {
		out[i] = ToSaleResponse(&items[i])
	}
	return out
}

// DownPaymentInput is the amount paid at invoicing time
type DownPaymentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	AccountID     uuid.UUID       `json:"account_id" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
}

// CreateSaleRequest invoices a sale. The remainder after the down payment
// becomes Installments monthly income obligations starting at FirstDueDate;
// zero installments leaves a single obligation due on FirstDueDate.
type CreateSaleRequest struct {
	ClientID     uuid.UUID         `json:"client_id" binding:"required"`
	ClientName   string            `json:"client_name" binding:"max=200"`
	SellerName   string            `json:"seller_name" binding:"max=100"`
	Items        []SaleLineInput   `json:"items" binding:"required,min=1,dive"`
	Discount     decimal.Decimal   `json:"discount"`
	Shipping     decimal.Decimal   `json:"shipping"`
	Notes        string            `json:"notes" binding:"max=2000"`
	DownPayment  *DownPaymentInput `json:"down_payment"`
	Installments int               `json:"installments" binding:"omitempty,min=1,max=360"`
	FirstDueDate *time.Time        `json:"first_due_date"`
	AccountID    *uuid.UUID        `json:"account_id"`
	OperationID  string            `json:"operation_id" binding:"max=128"`
}

// SaleResult is an invoiced sale with the obligations created for it
type SaleResult struct {
	Sale        SaleResponse                    `json:"sale"`
	Obligations []appfinance.ObligationResponse `json:"obligations"`
	Replayed    bool                            `json:"replayed"`
}

// SaleListFilter defines filtering options for sale list queries
type SaleListFilter struct {
	Search           string     `form:"search"`
	ClientID         *uuid.UUID `form:"-"`
	PaymentStatus    string     `form:"payment_status" binding:"omitempty,oneof=pendente parcial pago"`
	WithdrawalStatus string     `form:"withdrawal_status" binding:"omitempty,oneof=aguardando parcial total"`
	From             *time.Time `form:"from" time_format:"2006-01-02"`
	To               *time.Time `form:"to" time_format:"2006-01-02"`
	Page             int        `form:"page" binding:"omitempty,min=1"`
	PageSize         int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy          string     `form:"order_by"`
	OrderDir         string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ===================== Withdrawals =====================

// RegisterWithdrawalRequest records goods collected against a sale line
type RegisterWithdrawalRequest struct {
	SaleID      uuid.UUID       `json:"-"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Notes       string          `json:"notes" binding:"max=500"`
	OperationID string          `json:"operation_id" binding:"max=128"`
}

// WithdrawalEventResponse represents a withdrawal audit record
type WithdrawalEventResponse struct {
	ID          uuid.UUID       `json:"id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	WithdrawnAt time.Time       `json:"withdrawn_at"`
	Responsible string          `json:"responsible"`
	Notes       string          `json:"notes,omitempty"`
	OperationID string          `json:"operation_id,omitempty"`
}

// ToWithdrawalEventResponse converts a withdrawal event
func ToWithdrawalEventResponse(e *trade.WithdrawalEvent) WithdrawalEventResponse {
	return WithdrawalEventResponse{
		ID:          e.ID,
		SaleID:      e.SaleID,
		ProductID:   e.ProductID,
		ProductName: e.ProductName,
		Quantity:    e.Quantity,
		WithdrawnAt: e.WithdrawnAt,
		Responsible: e.Responsible,
		Notes:       e.Notes,
		OperationID: e.OperationID,
	}
}

// WithdrawalResult is the sale after a withdrawal plus its audit record
type WithdrawalResult struct {
	Sale     SaleResponse            `json:"sale"`
	Event    WithdrawalEventResponse `json:"event"`
	Replayed bool                    `json:"replayed"`
}

// ===================== Quotes =====================

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID              uuid.UUID          `json:"id"`
	CompanyID       uuid.UUID          `json:"company_id"`
	Number          string             `json:"number"`
	ClientID        uuid.UUID          `json:"client_id"`
	ClientName      string             `json:"client_name,omitempty"`
	SellerName      string             `json:"seller_name"`
	Items           []SaleLineResponse `json:"items"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Discount        decimal.Decimal    `json:"discount"`
	Shipping        decimal.Decimal    `json:"shipping"`
	Total           decimal.Decimal    `json:"total"`
	ValidUntil      *time.Time         `json:"valid_until,omitempty"`
	Expired         bool               `json:"expired"`
	Status          string             `json:"status"`
	ConvertedSaleID *uuid.UUID         `json:"converted_sale_id,omitempty"`
	ConvertedAt     *time.Time         `json:"converted_at,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Version         int                `json:"version"`
}

// ToQuoteResponse converts a domain quote
func ToQuoteResponse(q *trade.Quote) QuoteResponse {
	return QuoteResponse{
		ID:              q.ID,
		CompanyID:       q.CompanyID,
		Number:          q.Number,
		ClientID:        q.ClientID,
		ClientName:      q.ClientName,
		SellerName:      q.SellerName,
		Items:           toLineResponses(q.Items),
		Subtotal:        q.Subtotal,
		Discount:        q.Discount,
		Shipping:        q.Shipping,
		Total:           q.Total,
		ValidUntil:      q.ValidUntil,
		Expired:         q.IsExpired(time.Now()),
		Status:          string(q.Status),
		ConvertedSaleID: q.ConvertedSaleID,
		ConvertedAt:     q.ConvertedAt,
		Notes:           q.Notes,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
		Version:         q.Version,
	}
}

// ToQuoteResponses converts a slice of quotes
func ToQuoteResponses(items []trade.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(items))
	for i := range items {
		out[i] = ToQuoteResponse(&items[i])
	}
	return out
}

// CreateQuoteRequest opens a draft quote
type CreateQuoteRequest struct {
	ClientID   uuid.UUID       `json:"client_id" binding:"required"`
	ClientName string          `json:"client_name" binding:"max=200"`
	SellerName string          `json:"seller_name" binding:"max=100"`
	Items      []SaleLineInput `json:"items" binding:"required,min=1,dive"`
	Discount   decimal.Decimal `json:"discount"`
	Shipping   decimal.Decimal `json:"shipping"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes" binding:"max=2000"`
}

// UpdateQuoteRequest revises a quote that is still rascunho or enviado.
// Items replace the current lines when present.
type UpdateQuoteRequest struct {
	ClientName *string          `json:"client_name" binding:"omitempty,max=200"`
	Items      []SaleLineInput  `json:"items" binding:"omitempty,min=1,dive"`
	Discount   *decimal.Decimal `json:"discount"`
	Shipping   *decimal.Decimal `json:"shipping"`
	ValidUntil *time.Time       `json:"valid_until"`
	Notes      *string          `json:"notes" binding:"omitempty,max=2000"`
}

// ChangeQuoteStatusRequest applies a manual status transition
type ChangeQuoteStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=rascunho enviado aprovado recusado"`
}

// ConvertQuoteRequest carries the idempotency key of a conversion
type ConvertQuoteRequest struct {
	OperationID string `json:"operation_id" binding:"max=128"`
}

// ConversionResult is the quote after conversion and the sale it produced
type ConversionResult struct {
	Quote    QuoteResponse `json:"quote"`
	Sale     SaleResponse  `json:"sale"`
	Replayed bool          `json:"replayed"`
}

// QuoteListFilter defines filtering options for quote list queries
type QuoteListFilter struct {
	Search   string     `form:"search"`
	ClientID *uuid.UUID `form:"-"`
	Status   string     `form:"status" binding:"omitempty,oneof=rascunho enviado aprovado recusado convertido"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}
