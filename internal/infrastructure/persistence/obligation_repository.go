package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var obligationFilterable = map[string]bool{
	"id":                 true,
	"type":               true,
	"status":             true,
	"account_id":         true,
	"sale_id":            true,
	"is_active":          true,
	"counterparty":       true,
	"installment_number": true,
	"installment_count":  true,
	"description":        true,
	"due_date":           true,
}

var obligationUpdatable = map[string]bool{
	"description":  true,
	"counterparty": true,
	"notes":        true,
	"due_date":     true,
	"account_id":   true,
}

// GormObligationRepository implements finance.ObligationRepository using GORM
type GormObligationRepository struct {
	recordStore[finance.Obligation, models.ObligationModel]
}

// NewGormObligationRepository creates a new GormObligationRepository
func NewGormObligationRepository(db *Database) *GormObligationRepository {
	return &GormObligationRepository{
		recordStore: recordStore[finance.Obligation, models.ObligationModel]{
			db:            db,
			toDomain:      (*models.ObligationModel).ToDomain,
			fromDomain:    models.ObligationModelFromDomain,
			filterable:    obligationFilterable,
			updatable:     obligationUpdatable,
			sortFields:    ObligationSortFields,
			searchColumns: []string{"description", "counterparty"},
		},
	}
}

// FindByIDForCompany finds an obligation by ID within a company
func (r *GormObligationRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.Obligation, error) {
	return r.findOne(ctx, companyID, id)
}

// Search applies the typed obligation filter
func (r *GormObligationRepository) Search(ctx context.Context, companyID uuid.UUID, filter finance.ObligationFilter) ([]finance.Obligation, int64, error) {
	query := r.db.Conn(ctx).Model(&models.ObligationModel{}).Where("company_id = ?", companyID)
	query, err := applyCriteria(query, filter.Criteria, r.filterable)
	if err != nil {
		return nil, 0, err
	}
	query = applySearch(query, filter.Search, r.searchColumns)
	query = applyObligationFilter(query, filter, time.Now())
	return r.page(query, filter.Filter)
}

func applyObligationFilter(query *gorm.DB, filter finance.ObligationFilter, now time.Time) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Overdue {
		query = query.Where("is_active = ? AND status <> ? AND due_date < ?", true, finance.ObligationStatusPaid, now)
	}
	return query
}

// FindBySale returns the obligations invoiced from a sale
func (r *GormObligationRepository) FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]finance.Obligation, error) {
	var rows []models.ObligationModel
	if err := r.db.Conn(ctx).
		Where("company_id = ? AND sale_id = ?", companyID, saleID).
		Order("installment_number ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find obligations by sale: %w", err)
	}
	out := make([]finance.Obligation, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// SaveWithLock saves with optimistic locking
func (r *GormObligationRepository) SaveWithLock(ctx context.Context, o *finance.Obligation) error {
	return saveWithLock(ctx, r.db, models.ObligationModelFromDomain(o), o.ID, o.Version)
}
