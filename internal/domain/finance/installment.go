package finance

import (
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxInstallments caps how many installments a single plan may produce
const MaxInstallments = 360

// CurrencyPlaces is the precision installment amounts are rounded to
const CurrencyPlaces int32 = 2

// InstallmentPlan is one future-dated slice of a remaining balance
type InstallmentPlan struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// PlanInstallments splits remaining into count monthly installments.
// Installment i (0-based) is due firstDue + i months. Every installment but the
// last is remaining/count rounded down to cents; the last takes the residual so
// the amounts always sum to remaining exactly and no installment is smaller than
// a share.
func PlanInstallments(remaining decimal.Decimal, count int, firstDue time.Time) ([]InstallmentPlan, error) {
	if remaining.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Remaining amount must be positive")
	}
	if count < 1 {
		return nil, shared.NewDomainError(CodeInvalidInstallmentCount, "Installment count must be at least 1")
	}
	if count > MaxInstallments {
		return nil, shared.NewDomainError(CodeInvalidInstallmentCount,
			fmt.Sprintf("Installment count cannot exceed %d", MaxInstallments))
	}
	if firstDue.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "First due date is required")
	}

	share := remaining.Div(decimal.NewFromInt(int64(count))).RoundDown(CurrencyPlaces)
	if !share.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidInstallmentCount,
			fmt.Sprintf("Cannot split %s into %d installments of at least one cent", remaining.StringFixed(CurrencyPlaces), count))
	}
	plans := make([]InstallmentPlan, count)
	allocated := decimal.Zero
	for i := 0; i < count; i++ {
		amount := share
		if i == count-1 {
			amount = remaining.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		plans[i] = InstallmentPlan{
			Number:  i + 1,
			Amount:  amount,
			DueDate: AddMonths(firstDue, i),
		}
	}

	return plans, nil
}

// AddMonths adds n calendar months to t, clamping the day to the last day of
// the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

// NewInstallmentObligations materializes a plan as pending obligations
func NewInstallmentObligations(
	companyID uuid.UUID,
	obligationType ObligationType,
	description string,
	plans []InstallmentPlan,
	saleID *uuid.UUID,
	accountID *uuid.UUID,
) ([]*Obligation, error) {
	if len(plans) == 0 {
		return nil, shared.NewDomainError(CodeInvalidInstallmentCount, "Installment plan is empty")
	}

	obligations := make([]*Obligation, 0, len(plans))
	for _, p := range plans {
		desc := fmt.Sprintf("%s (%d/%d)", description, p.Number, len(plans))
		o, err := NewObligation(companyID, obligationType, desc, p.Amount, p.DueDate)
		if err != nil {
			return nil, err
		}
		if err := o.SetInstallment(p.Number, len(plans)); err != nil {
			return nil, err
		}
		if saleID != nil {
			o.AttachToSale(*saleID)
		}
		if accountID != nil {
			o.SetDefaultAccount(*accountID)
		}
		obligations = append(obligations, o)
	}
	return obligations, nil
}

// SumPlan totals the amounts of a plan
func SumPlan(plans []InstallmentPlan) decimal.Decimal {
	total := decimal.Zero
	for _, p := range plans {
		total = total.Add(p.Amount)
	}
	return total
}
