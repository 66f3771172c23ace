package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var saleFilterable = map[string]bool{
	"id":                true,
	"number":            true,
	"client_id":         true,
	"status":            true,
	"payment_status":    true,
	"withdrawal_status": true,
	"quote_id":          true,
}

var saleUpdatable = map[string]bool{
	"client_name": true,
	"seller_name": true,
	"notes":       true,
}

// GormSaleRepository implements trade.SaleRepository using GORM
type GormSaleRepository struct {
	recordStore[trade.Sale, models.SaleModel]
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *Database) *GormSaleRepository {
	return &GormSaleRepository{
		recordStore: recordStore[trade.Sale, models.SaleModel]{
			db:            db,
			toDomain:      (*models.SaleModel).ToDomain,
			fromDomain:    models.SaleModelFromDomain,
			filterable:    saleFilterable,
			updatable:     saleUpdatable,
			sortFields:    SaleSortFields,
			searchColumns: []string{"number", "client_name", "seller_name"},
		},
	}
}

// FindByIDForCompany finds a sale by ID within a company
func (r *GormSaleRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*trade.Sale, error) {
	return r.findOne(ctx, companyID, id)
}

// Search applies the typed sale filter
func (r *GormSaleRepository) Search(ctx context.Context, companyID uuid.UUID, filter trade.SaleFilter) ([]trade.Sale, int64, error) {
	query := r.db.Conn(ctx).Model(&models.SaleModel{}).Where("company_id = ?", companyID)
	query, err := applyCriteria(query, filter.Criteria, r.filterable)
	if err != nil {
		return nil, 0, err
	}
	query = applySearch(query, filter.Search, r.searchColumns)
	query = applySaleFilter(query, filter)
	return r.page(query, filter.Filter)
}

func applySaleFilter(query *gorm.DB, filter trade.SaleFilter) *gorm.DB {
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.WithdrawalStatus != nil {
		query = query.Where("withdrawal_status = ?", *filter.WithdrawalStatus)
	}
	if filter.From != nil {
		query = query.Where("sale_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("sale_date <= ?", *filter.To)
	}
	return query
}

// SaveWithLock writes the sale, including its whole items array, with optimistic locking
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, s *trade.Sale) error {
	return saveWithLock(ctx, r.db, models.SaleModelFromDomain(s), s.ID, s.Version)
}

// GenerateSaleNumber generates the next sale number for a company.
// Format: VD-YYYYMMDD-NNNNN
func (r *GormSaleRepository) GenerateSaleNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	n, err := nextDocumentNumber(ctx, r.db, &models.SaleModel{}, companyID, "VD")
	if err != nil {
		return "", fmt.Errorf("failed to generate sale number: %w", err)
	}
	return n, nil
}
