package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ObligationSortFields contains allowed sort fields for obligations
var ObligationSortFields = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"due_date":           true,
	"payment_date":       true,
	"total_amount":       true,
	"remaining_amount":   true,
	"status":             true,
	"description":        true,
	"installment_number": true,
}

// CashAccountSortFields contains allowed sort fields for cash accounts
var CashAccountSortFields = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"name":            true,
	"current_balance": true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"created_at":        true,
	"updated_at":        true,
	"sale_date":         true,
	"number":            true,
	"total":             true,
	"remaining_amount":  true,
	"payment_status":    true,
	"withdrawal_status": true,
}

// QuoteSortFields contains allowed sort fields for quotes
var QuoteSortFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"number":      true,
	"total":       true,
	"status":      true,
	"valid_until": true,
}
