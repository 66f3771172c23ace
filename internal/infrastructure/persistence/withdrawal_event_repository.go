package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
)

// GormWithdrawalEventRepository implements trade.WithdrawalEventRepository using GORM
type GormWithdrawalEventRepository struct {
	db *Database
}

// NewGormWithdrawalEventRepository creates a new GormWithdrawalEventRepository
func NewGormWithdrawalEventRepository(db *Database) *GormWithdrawalEventRepository {
	return &GormWithdrawalEventRepository{db: db}
}

// Create appends a withdrawal event
func (r *GormWithdrawalEventRepository) Create(ctx context.Context, e *trade.WithdrawalEvent) error {
	if err := r.db.Conn(ctx).Create(models.WithdrawalEventModelFromDomain(e)).Error; err != nil {
		return fmt.Errorf("failed to create withdrawal event: %w", err)
	}
	return nil
}

// FindBySale lists a sale's withdrawals oldest first
func (r *GormWithdrawalEventRepository) FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]trade.WithdrawalEvent, error) {
	var rows []models.WithdrawalEventModel
	if err := r.db.Conn(ctx).
		Where("company_id = ? AND sale_id = ?", companyID, saleID).
		Order("withdrawn_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find withdrawal events: %w", err)
	}
	out := make([]trade.WithdrawalEvent, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}
