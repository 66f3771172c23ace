package finance

import (
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Obligations =====================

// ObligationResponse represents an obligation in API responses
type ObligationResponse struct {
	ID                uuid.UUID       `json:"id"`
	CompanyID         uuid.UUID       `json:"company_id"`
	Description       string          `json:"description"`
	Counterparty      string          `json:"counterparty,omitempty"`
	Type              string          `json:"type"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	Status            string          `json:"status"`
	DueDate           time.Time       `json:"due_date"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	AccountID         *uuid.UUID      `json:"account_id,omitempty"`
	SaleID            *uuid.UUID      `json:"sale_id,omitempty"`
	InstallmentNumber int             `json:"installment_number,omitempty"`
	InstallmentCount  int             `json:"installment_count,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	IsActive          bool            `json:"is_active"`
	Overdue           bool            `json:"overdue"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ToObligationResponse converts a domain obligation
func ToObligationResponse(o *finance.Obligation) ObligationResponse {
	return ObligationResponse{
		ID:                o.ID,
		CompanyID:         o.CompanyID,
		Description:       o.Description,
		Counterparty:      o.Counterparty,
		Type:              string(o.Type),
		TotalAmount:       o.TotalAmount,
		PaidAmount:        o.PaidAmount,
		RemainingAmount:   o.RemainingAmount,
		Status:            string(o.Status),
		DueDate:           o.DueDate,
		PaymentDate:       o.PaymentDate,
		AccountID:         o.AccountID,
		SaleID:            o.SaleID,
		InstallmentNumber: o.InstallmentNumber,
		InstallmentCount:  o.InstallmentCount,
		Notes:             o.Notes,
		IsActive:          o.IsActive,
		Overdue:           o.IsOverdue(time.Now()),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Version:           o.Version,
	}
}

// ToObligationResponses converts a slice of obligations
func ToObligationResponses(items []finance.Obligation) []ObligationResponse {
	out := make([]ObligationResponse, len(items))
	for i := range items {
		out[i] = ToObligationResponse(&items[i])
	}
	return out
}

// CreateObligationRequest is a manual income or expense entry
type CreateObligationRequest struct {
	Type         string          `json:"type" binding:"required,oneof=income expense"`
	Description  string          `json:"description" binding:"required,min=1,max=255"`
	Counterparty string          `json:"counterparty" binding:"max=200"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	DueDate      time.Time       `json:"due_date" binding:"required"`
	AccountID    *uuid.UUID      `json:"account_id"`
	SaleID       *uuid.UUID      `json:"sale_id"`
	Notes        string          `json:"notes" binding:"max=2000"`
}

// ObligationListFilter defines filtering options for obligation list queries
type ObligationListFilter struct {
	Search    string     `form:"search"`
	Type      string     `form:"type" binding:"omitempty,oneof=income expense"`
	Statuses  []string   `form:"status"`
	AccountID *uuid.UUID `form:"-"`
	SaleID    *uuid.UUID `form:"-"`
	DueFrom   *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo     *time.Time `form:"due_to" time_format:"2006-01-02"`
	IsActive  *bool      `form:"is_active"`
	Overdue   bool       `form:"overdue"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// FilterRequest is the generic record-store filter: an equality or
// membership map over whitelisted columns plus paging.
type FilterRequest struct {
	Criteria map[string]any `json:"criteria"`
	Search   string         `json:"search"`
	Page     int            `json:"page" binding:"omitempty,min=1"`
	PageSize int            `json:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string         `json:"order_by"`
	OrderDir string         `json:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ===================== Abatements =====================

// RegisterAbatementRequest applies a partial or full payment to an obligation
type RegisterAbatementRequest struct {
	ObligationID  uuid.UUID       `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   *time.Time      `json:"payment_date"`
	AccountID     uuid.UUID       `json:"account_id"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	OperationID   string          `json:"operation_id" binding:"max=128"`
	ReceiptKey    string          `json:"receipt_key" binding:"max=512"`
}

// AbatementResult describes an applied abatement
type AbatementResult struct {
	Obligation       ObligationResponse `json:"obligation"`
	PaymentEventID   uuid.UUID          `json:"payment_event_id"`
	Applied          decimal.Decimal    `json:"applied"`
	Requested        decimal.Decimal    `json:"requested"`
	Clamped          bool               `json:"clamped"`
	AccountBalance   decimal.Decimal    `json:"account_balance"`
	RemainingDisplay string             `json:"remaining_display"`
	Replayed         bool               `json:"replayed"`
}

// PaymentEventResponse represents one entry of an obligation's payment history
type PaymentEventResponse struct {
	ID            uuid.UUID       `json:"id"`
	ObligationID  uuid.UUID       `json:"obligation_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	AccountID     uuid.UUID       `json:"account_id"`
	PaymentMethod string          `json:"payment_method"`
	Responsible   string          `json:"responsible"`
	OperationID   string          `json:"operation_id,omitempty"`
	ReceiptKey    string          `json:"receipt_key,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToPaymentEventResponse converts a payment event
func ToPaymentEventResponse(e *finance.PaymentEvent) PaymentEventResponse {
	return PaymentEventResponse{
		ID:            e.ID,
		ObligationID:  e.ObligationID,
		Amount:        e.Amount,
		PaymentDate:   e.PaymentDate,
		AccountID:     e.AccountID,
		PaymentMethod: string(e.PaymentMethod),
		Responsible:   e.Responsible,
		OperationID:   e.OperationID,
		ReceiptKey:    e.ReceiptKey,
		CreatedAt:     e.CreatedAt,
	}
}

// PaymentHistoryResponse lists an obligation's payments with their total
type PaymentHistoryResponse struct {
	ObligationID uuid.UUID              `json:"obligation_id"`
	Payments     []PaymentEventResponse `json:"payments"`
	Total        decimal.Decimal        `json:"total"`
}

// ===================== Installments =====================

// InstallmentPlanRequest describes an installment split
type InstallmentPlanRequest struct {
	Type         string          `json:"type" binding:"required,oneof=income expense"`
	Description  string          `json:"description" binding:"required,min=1,max=200"`
	Amount       decimal.Decimal `json:"amount"`
	Count        int             `json:"count" binding:"required,min=1,max=360"`
	FirstDueDate time.Time       `json:"first_due_date" binding:"required"`
	SaleID       *uuid.UUID      `json:"sale_id"`
	AccountID    *uuid.UUID      `json:"account_id"`
	OperationID  string          `json:"operation_id" binding:"max=128"`
}

// InstallmentLine is one planned installment
type InstallmentLine struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// InstallmentPreview is a plan that has not been persisted
type InstallmentPreview struct {
	Installments []InstallmentLine `json:"installments"`
	Total        decimal.Decimal   `json:"total"`
}

func toInstallmentPreview(plans []finance.InstallmentPlan) InstallmentPreview {
	lines := make([]InstallmentLine, len(plans))
	for i, p := range plans {
		lines[i] = InstallmentLine{Number: p.Number, Amount: p.Amount, DueDate: p.DueDate}
	}
	return InstallmentPreview{Installments: lines, Total: finance.SumPlan(plans)}
}

// InstallmentsResult lists the obligations created for a plan
type InstallmentsResult struct {
	Obligations []ObligationResponse `json:"obligations"`
	Total       decimal.Decimal      `json:"total"`
	Replayed    bool                 `json:"replayed"`
}

// ===================== Cash accounts =====================

// CreateCashAccountRequest opens a cash account
type CreateCashAccountRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=100"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// CashAccountResponse represents a cash account in API responses
type CashAccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToCashAccountResponse converts a cash account
func ToCashAccountResponse(a *finance.CashAccount) CashAccountResponse {
	return CashAccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		InitialBalance: a.InitialBalance,
		CurrentBalance: a.CurrentBalance,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Version:        a.Version,
	}
}

// ===================== Receipts =====================

// ReceiptUploadRequest asks for a presigned receipt upload
type ReceiptUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
}

// ReceiptUploadResponse carries the presigned upload target
type ReceiptUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReceiptDownloadResponse carries a presigned download link
type ReceiptDownloadResponse struct {
	Key         string    `json:"key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
