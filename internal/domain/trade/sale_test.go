package trade

import (
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Test helpers
func createTestLine(t *testing.T, name, qty, price string) SaleLine {
	t.Helper()
	l, err := NewSaleLine(uuid.New(), name, "un", d(qty), d(price), decimal.Zero)
	require.NoError(t, err)
	return l
}

func createTestSale(t *testing.T, lines ...SaleLine) *Sale {
	t.Helper()
	if len(lines) == 0 {
		lines = []SaleLine{
			createTestLine(t, "Areia", "10", "50"),
			createTestLine(t, "Brita", "5", "100"),
		}
	}
	s, err := NewSale(uuid.New(), "VD-20240115-00001", uuid.New(), "Carlos", lines, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	s.ClearDomainEvents()
	return s
}

// ============================================
// SaleLine Tests
// ============================================

func TestNewSaleLine(t *testing.T) {
	l, err := NewSaleLine(uuid.New(), " Cimento ", "sc", d("3"), d("32.90"), d("1.70"))
	require.NoError(t, err)
	assert.Equal(t, "Cimento", l.ProductName)
	assert.True(t, l.Total.Equal(d("97")))
	assert.True(t, l.QuantityWithdrawn.IsZero())
	assert.True(t, l.RemainingQuantity().Equal(d("3")))

	tests := []struct {
		name     string
		qty      string
		price    string
		discount string
		code     string
	}{
		{"zero quantity", "0", "1", "0", CodeInvalidQuantity},
		{"negative price", "1", "-1", "0", CodeInvalidPrice},
		{"negative discount", "1", "10", "-1", CodeInvalidDiscount},
		{"discount above amount", "1", "10", "11", CodeInvalidDiscount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSaleLine(uuid.New(), "x", "", d(tt.qty), d(tt.price), d(tt.discount))
			assert.Equal(t, tt.code, shared.ErrorCode(err))
		})
	}
}

func TestSaleLines_Scan(t *testing.T) {
	lines := SaleLines{createTestLine(t, "Areia", "2.5", "10")}
	value, err := lines.Value()
	require.NoError(t, err)

	var scanned SaleLines
	require.NoError(t, scanned.Scan([]byte(value.(string))))
	require.Len(t, scanned, 1)
	assert.True(t, scanned[0].Quantity.Equal(d("2.5")))

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))
}

// ============================================
// Sale Tests
// ============================================

func TestNewSale(t *testing.T) {
	lines := []SaleLine{createTestLine(t, "Areia", "10", "50"), createTestLine(t, "Brita", "5", "100")}
	s, err := NewSale(uuid.New(), "VD-1", uuid.New(), "Carlos", lines, d("100"), d("25"))
	require.NoError(t, err)

	assert.True(t, s.Subtotal.Equal(d("1000")))
	assert.True(t, s.Total.Equal(d("925")))
	assert.True(t, s.RemainingAmount.Equal(d("925")))
	assert.True(t, s.PaidAmount.IsZero())
	assert.Equal(t, SaleStatusInvoiced, s.Status)
	assert.Equal(t, PaymentStatusPending, s.PaymentStatus)
	assert.Equal(t, WithdrawalStatusAwaiting, s.WithdrawalStatus)
	require.Len(t, s.GetDomainEvents(), 1)

	_, err = NewSale(uuid.New(), "VD-2", uuid.New(), "", nil, decimal.Zero, decimal.Zero)
	assert.Equal(t, CodeEmptyItems, shared.ErrorCode(err))

	_, err = NewSale(uuid.New(), "VD-3", uuid.New(), "", lines, d("2000"), decimal.Zero)
	assert.Equal(t, CodeInvalidDiscount, shared.ErrorCode(err))

	dup := []SaleLine{lines[0], lines[0]}
	_, err = NewSale(uuid.New(), "VD-4", uuid.New(), "", dup, decimal.Zero, decimal.Zero)
	assert.Equal(t, "DUPLICATE_PRODUCT", shared.ErrorCode(err))
}

func TestSale_Withdraw(t *testing.T) {
	t.Run("partial withdrawal", func(t *testing.T) {
		s := createTestSale(t)
		productID := s.Items[0].ProductID

		line, err := s.Withdraw(productID, d("4"))
		require.NoError(t, err)

		assert.True(t, line.QuantityWithdrawn.Equal(d("4")))
		assert.True(t, s.Items[0].QuantityWithdrawn.Equal(d("4")))
		assert.Equal(t, WithdrawalStatusPartial, s.WithdrawalStatus)
		assert.Equal(t, 2, s.Version)
		assert.NoError(t, s.CheckInvariants())
	})

	t.Run("withdrawing everything marks the sale total", func(t *testing.T) {
		s := createTestSale(t)

		_, err := s.Withdraw(s.Items[0].ProductID, d("10"))
		require.NoError(t, err)
		assert.Equal(t, WithdrawalStatusPartial, s.WithdrawalStatus)

		_, err = s.Withdraw(s.Items[1].ProductID, d("2"))
		require.NoError(t, err)
		_, err = s.Withdraw(s.Items[1].ProductID, d("3"))
		require.NoError(t, err)

		assert.Equal(t, WithdrawalStatusTotal, s.WithdrawalStatus)
		types := []string{}
		for _, e := range s.GetDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Contains(t, types, EventTypeSaleFullyWithdrawn)
	})

	t.Run("rejects quantity above remaining balance with no state change", func(t *testing.T) {
		s := createTestSale(t)
		productID := s.Items[0].ProductID
		_, err := s.Withdraw(productID, d("7"))
		require.NoError(t, err)
		version := s.Version

		_, err = s.Withdraw(productID, d("3.001"))
		assert.Equal(t, CodeWithdrawalExceedsBalance, shared.ErrorCode(err))
		assert.True(t, s.Items[0].QuantityWithdrawn.Equal(d("7")))
		assert.Equal(t, version, s.Version)
		assert.Equal(t, WithdrawalStatusPartial, s.WithdrawalStatus)
	})

	t.Run("rejects unknown product and non-positive quantity", func(t *testing.T) {
		s := createTestSale(t)

		_, err := s.Withdraw(uuid.New(), d("1"))
		assert.Equal(t, CodeLineNotFound, shared.ErrorCode(err))

		_, err = s.Withdraw(s.Items[0].ProductID, decimal.Zero)
		assert.Equal(t, CodeInvalidQuantity, shared.ErrorCode(err))
	})

	t.Run("fractional quantities", func(t *testing.T) {
		s := createTestSale(t, createTestLine(t, "Areia", "1.5", "80"))
		_, err := s.Withdraw(s.Items[0].ProductID, d("0.75"))
		require.NoError(t, err)
		_, err = s.Withdraw(s.Items[0].ProductID, d("0.75"))
		require.NoError(t, err)
		assert.Equal(t, WithdrawalStatusTotal, s.WithdrawalStatus)
	})
}

func TestDeriveWithdrawalStatus(t *testing.T) {
	a := createTestLine(t, "A", "2", "1")
	b := createTestLine(t, "B", "3", "1")

	assert.Equal(t, WithdrawalStatusAwaiting, DeriveWithdrawalStatus(SaleLines{a, b}))

	a.QuantityWithdrawn = d("1")
	assert.Equal(t, WithdrawalStatusPartial, DeriveWithdrawalStatus(SaleLines{a, b}))

	a.QuantityWithdrawn = d("2")
	assert.Equal(t, WithdrawalStatusPartial, DeriveWithdrawalStatus(SaleLines{a, b}))

	b.QuantityWithdrawn = d("3")
	assert.Equal(t, WithdrawalStatusTotal, DeriveWithdrawalStatus(SaleLines{a, b}))

	assert.Equal(t, WithdrawalStatusAwaiting, DeriveWithdrawalStatus(nil))
}

func TestSale_RegisterPayment(t *testing.T) {
	s := createTestSale(t)

	require.NoError(t, s.RegisterPayment(d("300")))
	assert.Equal(t, PaymentStatusPartial, s.PaymentStatus)
	assert.True(t, s.RemainingAmount.Equal(d("700")))

	require.NoError(t, s.RegisterPayment(d("5000")))
	assert.Equal(t, PaymentStatusPaid, s.PaymentStatus)
	assert.True(t, s.PaidAmount.Equal(s.Total))
	assert.True(t, s.RemainingAmount.IsZero())

	assert.Error(t, s.RegisterPayment(decimal.Zero))
}
