package dto

import "net/http"

// Transport-level error codes. Domain errors keep the code they were raised with.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
	ErrCodeTokenRevoked = "TOKEN_REVOKED"
)

// Shared domain codes referenced by handlers and middleware
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeCompanyRequired     = "COMPANY_REQUIRED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Transport
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	// Input errors -> 400 Bad Request
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeCompanyRequired:      http.StatusBadRequest,
	"INVALID_AMOUNT":            http.StatusBadRequest,
	"ACCOUNT_REQUIRED":          http.StatusBadRequest,
	"INVALID_INSTALLMENT_COUNT": http.StatusBadRequest,
	"INVALID_PAYMENT_METHOD":    http.StatusBadRequest,
	"INVALID_QUANTITY":          http.StatusBadRequest,
	"INVALID_PRICE":             http.StatusBadRequest,
	"INVALID_DISCOUNT":          http.StatusBadRequest,
	"INVALID_CLIENT":            http.StatusBadRequest,
	"EMPTY_ITEMS":               http.StatusBadRequest,
	"INVALID_EMAIL":             http.StatusBadRequest,
	"INVALID_PASSWORD":          http.StatusBadRequest,
	"INVALID_NAME":              http.StatusBadRequest,
	"INVALID_ROLE":              http.StatusBadRequest,
	"RECEIPT_TYPE_NOT_ALLOWED":  http.StatusBadRequest,
	"RECEIPT_TOO_LARGE":         http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	ErrCodeForbidden:      http.StatusForbidden,
	"ACCOUNT_INACTIVE":    http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	"LINE_NOT_FOUND":           http.StatusNotFound,
	"RECEIPT_NOT_FOUND":        http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	"OBLIGATION_SETTLED":         http.StatusUnprocessableEntity,
	"OBLIGATION_INACTIVE":        http.StatusUnprocessableEntity,
	"WITHDRAWAL_EXCEEDS_BALANCE": http.StatusUnprocessableEntity,
	"QUOTE_ALREADY_CONVERTED":    http.StatusUnprocessableEntity,
	"INVALID_STATUS_TRANSITION":  http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainHTTPStatus returns the status for a code raised by the domain layer.
// Codes missing from the table are business rule violations.
func DomainHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
