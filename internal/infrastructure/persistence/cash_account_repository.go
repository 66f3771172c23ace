package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
)

var cashAccountFilterable = map[string]bool{
	"id":        true,
	"name":      true,
	"is_active": true,
}

var cashAccountUpdatable = map[string]bool{
	"name":      true,
	"is_active": true,
}

// GormCashAccountRepository implements finance.CashAccountRepository using GORM
type GormCashAccountRepository struct {
	recordStore[finance.CashAccount, models.CashAccountModel]
}

// NewGormCashAccountRepository creates a new GormCashAccountRepository
func NewGormCashAccountRepository(db *Database) *GormCashAccountRepository {
	return &GormCashAccountRepository{
		recordStore: recordStore[finance.CashAccount, models.CashAccountModel]{
			db:            db,
			toDomain:      (*models.CashAccountModel).ToDomain,
			fromDomain:    models.CashAccountModelFromDomain,
			filterable:    cashAccountFilterable,
			updatable:     cashAccountUpdatable,
			sortFields:    CashAccountSortFields,
			searchColumns: []string{"name"},
		},
	}
}

// FindByIDForCompany finds a cash account by ID within a company
func (r *GormCashAccountRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.CashAccount, error) {
	return r.findOne(ctx, companyID, id)
}

// SaveWithLock saves with optimistic locking
func (r *GormCashAccountRepository) SaveWithLock(ctx context.Context, a *finance.CashAccount) error {
	return saveWithLock(ctx, r.db, models.CashAccountModelFromDomain(a), a.ID, a.Version)
}

// CompanyIDs lists every company that owns an active cash account
func (r *GormCashAccountRepository) CompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.Conn(ctx).Model(&models.CashAccountModel{}).
		Where("is_active = ?", true).
		Distinct("company_id").
		Order("company_id").
		Pluck("company_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return ids, nil
}
