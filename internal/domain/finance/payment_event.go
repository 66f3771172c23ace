package finance

import (
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how an abatement was paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "dinheiro"
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodCreditCard   PaymentMethod = "cartao_credito"
	PaymentMethodDebitCard    PaymentMethod = "cartao_debito"
	PaymentMethodBoleto       PaymentMethod = "boleto"
	PaymentMethodBankTransfer PaymentMethod = "transferencia"
	PaymentMethodCheck        PaymentMethod = "cheque"
)

// AllPaymentMethods lists every accepted payment method
var AllPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodPix,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodBoleto,
	PaymentMethodBankTransfer,
	PaymentMethodCheck,
}

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	for _, known := range AllPaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// PaymentEvent is the immutable record of one abatement. Events are
// append-only; the sum of amounts for an obligation equals its paid amount.
type PaymentEvent struct {
	ID            uuid.UUID       `json:"id"`
	CompanyID     uuid.UUID       `json:"company_id"`
	ObligationID  uuid.UUID       `json:"obligation_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	AccountID     uuid.UUID       `json:"account_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Responsible   string          `json:"responsible"`
	OperationID   string          `json:"operation_id,omitempty"`
	ReceiptKey    string          `json:"receipt_key,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewPaymentEvent records an applied abatement
func NewPaymentEvent(
	obligation *Obligation,
	amount decimal.Decimal,
	paymentDate time.Time,
	accountID uuid.UUID,
	method PaymentMethod,
	responsible string,
) (*PaymentEvent, error) {
	if obligation == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Obligation is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError(CodeAccountRequired, "A cash account must be selected")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidPaymentMethod, "Payment method is not valid")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &PaymentEvent{
		ID:            uuid.New(),
		CompanyID:     obligation.CompanyID,
		ObligationID:  obligation.ID,
		Amount:        amount,
		PaymentDate:   paymentDate,
		AccountID:     accountID,
		PaymentMethod: method,
		Responsible:   strings.TrimSpace(responsible),
		CreatedAt:     time.Now(),
	}, nil
}

// WithOperation tags the event with the idempotency key that produced it
func (e *PaymentEvent) WithOperation(operationID string) *PaymentEvent {
	e.OperationID = operationID
	return e
}

// WithReceipt attaches a stored receipt object key
func (e *PaymentEvent) WithReceipt(key string) *PaymentEvent {
	e.ReceiptKey = strings.TrimSpace(key)
	return e
}

// SumPayments totals the amounts of the given events
func SumPayments(events []PaymentEvent) decimal.Decimal {
	total := decimal.Zero
	for _, e := range events {
		total = total.Add(e.Amount)
	}
	return total
}
