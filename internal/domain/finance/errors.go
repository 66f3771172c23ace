package finance

// Error codes raised by the finance context
const (
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeAccountRequired         = "ACCOUNT_REQUIRED"
	CodeObligationSettled       = "OBLIGATION_SETTLED"
	CodeObligationInactive      = "OBLIGATION_INACTIVE"
	CodeInvalidInstallmentCount = "INVALID_INSTALLMENT_COUNT"
	CodeInvalidPaymentMethod    = "INVALID_PAYMENT_METHOD"
	CodeAccountInactive         = "ACCOUNT_INACTIVE"
)
