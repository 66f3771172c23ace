package trade

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLine is one product row of a sale or quote. It is embedded in the
// owning record, not stored as a separate entity.
type SaleLine struct {
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Unit              string          `json:"unit,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	QuantityWithdrawn decimal.Decimal `json:"quantity_withdrawn"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
}

// NewSaleLine builds a line and computes total = quantity * unit_price - discount
func NewSaleLine(productID uuid.UUID, productName, unit string, quantity, unitPrice, discount decimal.Decimal) (SaleLine, error) {
	productName = strings.TrimSpace(productName)
	if productID == uuid.Nil {
		return SaleLine{}, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return SaleLine{}, shared.NewDomainError("INVALID_PRODUCT", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return SaleLine{}, shared.NewDomainError(CodeInvalidQuantity, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return SaleLine{}, shared.NewDomainError(CodeInvalidPrice, "Unit price cannot be negative")
	}
	gross := quantity.Mul(unitPrice)
	if discount.IsNegative() || discount.GreaterThan(gross) {
		return SaleLine{}, shared.NewDomainError(CodeInvalidDiscount, "Line discount must be between zero and the line amount")
	}

	return SaleLine{
		ProductID:         productID,
		ProductName:       productName,
		Unit:              strings.TrimSpace(unit),
		Quantity:          quantity,
		QuantityWithdrawn: decimal.Zero,
		UnitPrice:         unitPrice,
		Discount:          discount,
		Total:             gross.Sub(discount).Round(2),
	}, nil
}

// RemainingQuantity is what can still be withdrawn
func (l SaleLine) RemainingQuantity() decimal.Decimal {
	return l.Quantity.Sub(l.QuantityWithdrawn)
}

// IsFullyWithdrawn reports whether the sold quantity has been collected
func (l SaleLine) IsFullyWithdrawn() bool {
	return l.QuantityWithdrawn.GreaterThanOrEqual(l.Quantity)
}

// SaleLines is a slice of SaleLine that implements GORM Scanner/Valuer for JSONB storage
type SaleLines []SaleLine

// Value implements driver.Valuer interface for GORM to store as JSONB
func (s SaleLines) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (s *SaleLines) Scan(value interface{}) error {
	if value == nil {
		*s = SaleLines{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan SaleLines: unsupported type")
	}

	if len(bytes) == 0 {
		*s = SaleLines{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Clone returns a deep copy with quantity_withdrawn reset, so a quote's lines
// become a fresh sale's lines.
func (s SaleLines) Clone() SaleLines {
	out := make(SaleLines, len(s))
	copy(out, s)
	for i := range out {
		out[i].QuantityWithdrawn = decimal.Zero
	}
	return out
}

// Subtotal sums the line totals
func (s SaleLines) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s {
		total = total.Add(l.Total)
	}
	return total
}

// Find returns the index of the line for productID, or -1
func (s SaleLines) Find(productID uuid.UUID) int {
	for i, l := range s {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// computeTotals validates order-level discount and shipping and returns subtotal and total
func computeTotals(items SaleLines, discount, shipping decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, decimal.Zero, shared.NewDomainError(CodeEmptyItems, "At least one item is required")
	}
	seen := make(map[uuid.UUID]bool, len(items))
	for _, l := range items {
		if seen[l.ProductID] {
			return decimal.Zero, decimal.Zero, shared.NewDomainError("DUPLICATE_PRODUCT", "Each product may appear only once")
		}
		seen[l.ProductID] = true
	}
	subtotal := items.Subtotal()
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return decimal.Zero, decimal.Zero, shared.NewDomainError(CodeInvalidDiscount, "Discount must be between zero and the subtotal")
	}
	if shipping.IsNegative() {
		return decimal.Zero, decimal.Zero, shared.NewDomainError("INVALID_SHIPPING", "Shipping cannot be negative")
	}
	return subtotal, subtotal.Sub(discount).Add(shipping), nil
}
