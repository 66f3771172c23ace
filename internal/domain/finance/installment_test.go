package finance

import (
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestPlanInstallments(t *testing.T) {
	t.Run("900 in 3 from 2024-01-15", func(t *testing.T) {
		plans, err := PlanInstallments(d("900"), 3, date(2024, 1, 15))
		require.NoError(t, err)
		require.Len(t, plans, 3)

		expectedDates := []time.Time{date(2024, 1, 15), date(2024, 2, 15), date(2024, 3, 15)}
		for i, p := range plans {
			assert.Equal(t, i+1, p.Number)
			assert.True(t, p.Amount.Equal(d("300")), "installment %d amount %s", i+1, p.Amount)
			assert.Equal(t, expectedDates[i], p.DueDate)
		}
	})

	t.Run("last installment absorbs the rounding residual", func(t *testing.T) {
		tests := []struct {
			amount string
			count  int
			first  string
			last   string
		}{
			{"100", 3, "33.33", "33.34"},
			{"10", 3, "3.33", "3.34"},
			{"200", 3, "66.66", "66.68"},
			{"0.05", 4, "0.01", "0.02"},
			{"1234.56", 7, "176.36", "176.40"},
			{"1.10", 20, "0.05", "0.15"},
			{"0.02", 2, "0.01", "0.01"},
		}

		for _, tt := range tests {
			t.Run(tt.amount, func(t *testing.T) {
				plans, err := PlanInstallments(d(tt.amount), tt.count, date(2024, 1, 10))
				require.NoError(t, err)
				require.Len(t, plans, tt.count)

				assert.True(t, plans[0].Amount.Equal(d(tt.first)), "first: %s", plans[0].Amount)
				assert.True(t, plans[tt.count-1].Amount.Equal(d(tt.last)), "last: %s", plans[tt.count-1].Amount)
				assert.True(t, SumPlan(plans).Equal(d(tt.amount)), "sum must reconcile exactly")
			})
		}
	})

	t.Run("small balances never produce a non-positive installment", func(t *testing.T) {
		tests := []struct {
			amount string
			count  int
		}{
			{"1.10", 20},
			{"0.99", 98},
			{"0.07", 7},
			{"5.01", 333},
		}

		for _, tt := range tests {
			t.Run(tt.amount, func(t *testing.T) {
				plans, err := PlanInstallments(d(tt.amount), tt.count, date(2024, 1, 15))
				require.NoError(t, err)
				require.Len(t, plans, tt.count)
				for _, p := range plans {
					assert.True(t, p.Amount.IsPositive(), "installment %d amount %s", p.Number, p.Amount)
				}
				assert.True(t, SumPlan(plans).Equal(d(tt.amount)), "sum must reconcile exactly")

				obligations, err := NewInstallmentObligations(uuid.New(), ObligationTypeIncome, "Venda", plans, nil, nil)
				require.NoError(t, err)
				assert.Len(t, obligations, tt.count)
			})
		}
	})

	t.Run("rejects more installments than cents", func(t *testing.T) {
		_, err := PlanInstallments(d("0.02"), 3, date(2024, 1, 15))
		assert.Equal(t, CodeInvalidInstallmentCount, shared.ErrorCode(err))

		_, err = PlanInstallments(d("0.009"), 1, date(2024, 1, 15))
		assert.Equal(t, CodeInvalidInstallmentCount, shared.ErrorCode(err))
	})

	t.Run("single installment is the whole balance", func(t *testing.T) {
		plans, err := PlanInstallments(d("123.45"), 1, date(2024, 5, 5))
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.True(t, plans[0].Amount.Equal(d("123.45")))
		assert.Equal(t, date(2024, 5, 5), plans[0].DueDate)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := PlanInstallments(decimal.Zero, 3, date(2024, 1, 1))
		assert.Equal(t, CodeInvalidAmount, shared.ErrorCode(err))

		_, err = PlanInstallments(d("100"), 0, date(2024, 1, 1))
		assert.Equal(t, CodeInvalidInstallmentCount, shared.ErrorCode(err))

		_, err = PlanInstallments(d("100"), MaxInstallments+1, date(2024, 1, 1))
		assert.Equal(t, CodeInvalidInstallmentCount, shared.ErrorCode(err))

		_, err = PlanInstallments(d("100"), 2, time.Time{})
		assert.Equal(t, "INVALID_DUE_DATE", shared.ErrorCode(err))
	})
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"same day next month", date(2024, 1, 15), 1, date(2024, 2, 15)},
		{"zero months", date(2024, 1, 15), 0, date(2024, 1, 15)},
		{"end of january into leap february", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"end of january into february", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"crosses year boundary", date(2024, 11, 30), 3, date(2025, 2, 28)},
		{"31st into 30-day month", date(2024, 3, 31), 1, date(2024, 4, 30)},
		{"twelve months", date(2024, 2, 29), 12, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.in, tt.n))
		})
	}
}

func TestNewInstallmentObligations(t *testing.T) {
	companyID := uuid.New()
	saleID := uuid.New()
	accountID := uuid.New()

	plans, err := PlanInstallments(d("100"), 3, date(2024, 1, 15))
	require.NoError(t, err)

	obligations, err := NewInstallmentObligations(companyID, ObligationTypeIncome, "Venda 42", plans, &saleID, &accountID)
	require.NoError(t, err)
	require.Len(t, obligations, 3)

	total := decimal.Zero
	for i, o := range obligations {
		assert.Equal(t, companyID, o.CompanyID)
		assert.Equal(t, ObligationStatusPending, o.Status)
		assert.Equal(t, i+1, o.InstallmentNumber)
		assert.Equal(t, 3, o.InstallmentCount)
		require.NotNil(t, o.SaleID)
		assert.Equal(t, saleID, *o.SaleID)
		require.NotNil(t, o.AccountID)
		assert.Equal(t, accountID, *o.AccountID)
		assert.Equal(t, plans[i].DueDate, o.DueDate)
		total = total.Add(o.TotalAmount)
	}
	assert.Equal(t, "Venda 42 (2/3)", obligations[1].Description)
	assert.True(t, total.Equal(d("100")))

	_, err = NewInstallmentObligations(companyID, ObligationTypeIncome, "x", nil, nil, nil)
	assert.Equal(t, CodeInvalidInstallmentCount, shared.ErrorCode(err))
}
