package trade

// Error codes raised by the trade context
const (
	CodeInvalidQuantity          = "INVALID_QUANTITY"
	CodeInvalidPrice             = "INVALID_PRICE"
	CodeInvalidDiscount          = "INVALID_DISCOUNT"
	CodeEmptyItems               = "EMPTY_ITEMS"
	CodeLineNotFound             = "LINE_NOT_FOUND"
	CodeWithdrawalExceedsBalance = "WITHDRAWAL_EXCEEDS_BALANCE"
	CodeQuoteAlreadyConverted    = "QUOTE_ALREADY_CONVERTED"
	CodeInvalidStatusTransition  = "INVALID_STATUS_TRANSITION"
	CodeInvalidClient            = "INVALID_CLIENT"
)
