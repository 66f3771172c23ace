package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GormPaymentEventRepository implements finance.PaymentEventRepository using GORM
type GormPaymentEventRepository struct {
	db *Database
}

// NewGormPaymentEventRepository creates a new GormPaymentEventRepository
func NewGormPaymentEventRepository(db *Database) *GormPaymentEventRepository {
	return &GormPaymentEventRepository{db: db}
}

// Create appends a payment event
func (r *GormPaymentEventRepository) Create(ctx context.Context, e *finance.PaymentEvent) error {
	if err := r.db.Conn(ctx).Create(models.PaymentEventModelFromDomain(e)).Error; err != nil {
		return fmt.Errorf("failed to create payment event: %w", err)
	}
	return nil
}

// FindByObligation lists an obligation's payment history oldest first
func (r *GormPaymentEventRepository) FindByObligation(ctx context.Context, companyID, obligationID uuid.UUID) ([]finance.PaymentEvent, error) {
	var rows []models.PaymentEventModel
	if err := r.db.Conn(ctx).
		Where("company_id = ? AND obligation_id = ?", companyID, obligationID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find payment events: %w", err)
	}
	out := make([]finance.PaymentEvent, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindByOperation finds the payment event produced by an operation id
func (r *GormPaymentEventRepository) FindByOperation(ctx context.Context, companyID uuid.UUID, operationID string) (*finance.PaymentEvent, error) {
	var row models.PaymentEventModel
	if err := r.db.Conn(ctx).
		Where("company_id = ? AND operation_id = ?", companyID, operationID).
		First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return row.ToDomain(), nil
}

type sumRow struct {
	Total decimal.NullDecimal
	Count int64
}

// SumByObligation totals an obligation's payment events
func (r *GormPaymentEventRepository) SumByObligation(ctx context.Context, companyID, obligationID uuid.UUID) (finance.PaymentSum, error) {
	var row sumRow
	if err := r.db.Conn(ctx).
		Model(&models.PaymentEventModel{}).
		Select("SUM(amount) AS total, COUNT(*) AS count").
		Where("company_id = ? AND obligation_id = ?", companyID, obligationID).
		Scan(&row).Error; err != nil {
		return finance.PaymentSum{}, fmt.Errorf("failed to sum payment events: %w", err)
	}
	total := decimal.Zero
	if row.Total.Valid {
		total = row.Total.Decimal
	}
	return finance.PaymentSum{ObligationID: obligationID, Total: total, Count: row.Count}, nil
}

type accountTotalsRow struct {
	Type  finance.ObligationType
	Total decimal.NullDecimal
	Count int64
}

// TotalsByAccount sums the payment events posted to an account, split by obligation type
func (r *GormPaymentEventRepository) TotalsByAccount(ctx context.Context, companyID, accountID uuid.UUID) (finance.AccountTotals, error) {
	var rows []accountTotalsRow
	if err := r.db.Conn(ctx).
		Table("payment_events AS pe").
		Select("o.type AS type, SUM(pe.amount) AS total, COUNT(*) AS count").
		Joins("JOIN obligations o ON o.id = pe.obligation_id").
		Where("pe.company_id = ? AND pe.account_id = ?", companyID, accountID).
		Group("o.type").
		Scan(&rows).Error; err != nil {
		return finance.AccountTotals{}, fmt.Errorf("failed to total account payments: %w", err)
	}

	totals := finance.AccountTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, row := range rows {
		if !row.Total.Valid {
			continue
		}
		switch row.Type {
		case finance.ObligationTypeIncome:
			totals.Income = totals.Income.Add(row.Total.Decimal)
		case finance.ObligationTypeExpense:
			totals.Expense = totals.Expense.Add(row.Total.Decimal)
		}
		totals.Count += row.Count
	}
	return totals, nil
}
