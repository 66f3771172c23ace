package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// OperationModel is one row of the idempotency operation log.
type OperationModel struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_operation_company_key,priority:1"`
	OperationID string                 `gorm:"type:varchar(128);not null;uniqueIndex:idx_operation_company_key,priority:2"`
	Kind        string                 `gorm:"type:varchar(50);not null"`
	Status      shared.OperationStatus `gorm:"type:varchar(20);not null"`
	ResultRef   *uuid.UUID             `gorm:"type:uuid"`
	Error       string                 `gorm:"type:text"`
	CreatedAt   time.Time              `gorm:"not null"`
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (OperationModel) TableName() string {
	return "operation_log"
}

// ToDomain converts the persistence model to a domain Operation
func (m *OperationModel) ToDomain() *shared.Operation {
	return &shared.Operation{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		OperationID: m.OperationID,
		Kind:        m.Kind,
		Status:      m.Status,
		ResultRef:   m.ResultRef,
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}

// OperationModelFromDomain creates a persistence model from a domain Operation
func OperationModelFromDomain(op *shared.Operation) *OperationModel {
	return &OperationModel{
		ID:          op.ID,
		CompanyID:   op.CompanyID,
		OperationID: op.OperationID,
		Kind:        op.Kind,
		Status:      op.Status,
		ResultRef:   op.ResultRef,
		Error:       op.Error,
		CreatedAt:   op.CreatedAt,
		CompletedAt: op.CompletedAt,
	}
}

// AllModels lists every model for schema creation in tests
func AllModels() []any {
	return []any{
		&ObligationModel{},
		&PaymentEventModel{},
		&CashAccountModel{},
		&SaleModel{},
		&WithdrawalEventModel{},
		&QuoteModel{},
		&UserModel{},
		&OperationModel{},
	}
}
