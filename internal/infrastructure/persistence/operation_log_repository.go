package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// GormOperationLog implements shared.OperationLog using GORM
type GormOperationLog struct {
	db *Database
}

// NewGormOperationLog creates a new GormOperationLog
func NewGormOperationLog(db *Database) *GormOperationLog {
	return &GormOperationLog{db: db}
}

// Find returns the operation for (company, operation id)
func (r *GormOperationLog) Find(ctx context.Context, companyID uuid.UUID, operationID string) (*shared.Operation, error) {
	var row models.OperationModel
	if err := r.db.Conn(ctx).
		Where("company_id = ? AND operation_id = ?", companyID, operationID).
		First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return row.ToDomain(), nil
}

// Save upserts the operation on (company_id, operation_id)
func (r *GormOperationLog) Save(ctx context.Context, op *shared.Operation) error {
	return r.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "operation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "result_ref", "error", "completed_at"}),
	}).Create(models.OperationModelFromDomain(op)).Error
}
