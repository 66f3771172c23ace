package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
)

var quoteFilterable = map[string]bool{
	"id":                true,
	"number":            true,
	"client_id":         true,
	"status":            true,
	"converted_sale_id": true,
}

var quoteUpdatable = map[string]bool{
	"client_name": true,
	"seller_name": true,
	"notes":       true,
	"valid_until": true,
}

// GormQuoteRepository implements trade.QuoteRepository using GORM
type GormQuoteRepository struct {
	recordStore[trade.Quote, models.QuoteModel]
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *Database) *GormQuoteRepository {
	return &GormQuoteRepository{
		recordStore: recordStore[trade.Quote, models.QuoteModel]{
			db:            db,
			toDomain:      (*models.QuoteModel).ToDomain,
			fromDomain:    models.QuoteModelFromDomain,
			filterable:    quoteFilterable,
			updatable:     quoteUpdatable,
			sortFields:    QuoteSortFields,
			searchColumns: []string{"number", "client_name"},
		},
	}
}

// FindByIDForCompany finds a quote by ID within a company
func (r *GormQuoteRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*trade.Quote, error) {
	return r.findOne(ctx, companyID, id)
}

// Search applies the typed quote filter
func (r *GormQuoteRepository) Search(ctx context.Context, companyID uuid.UUID, filter trade.QuoteFilter) ([]trade.Quote, int64, error) {
	query := r.db.Conn(ctx).Model(&models.QuoteModel{}).Where("company_id = ?", companyID)
	query, err := applyCriteria(query, filter.Criteria, r.filterable)
	if err != nil {
		return nil, 0, err
	}
	query = applySearch(query, filter.Search, r.searchColumns)
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return r.page(query, filter.Filter)
}

// SaveWithLock saves with optimistic locking
func (r *GormQuoteRepository) SaveWithLock(ctx context.Context, q *trade.Quote) error {
	return saveWithLock(ctx, r.db, models.QuoteModelFromDomain(q), q.ID, q.Version)
}

// GenerateQuoteNumber generates the next quote number for a company.
// Format: OR-YYYYMMDD-NNNNN
func (r *GormQuoteRepository) GenerateQuoteNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	n, err := nextDocumentNumber(ctx, r.db, &models.QuoteModel{}, companyID, "OR")
	if err != nil {
		return "", fmt.Errorf("failed to generate quote number: %w", err)
	}
	return n, nil
}
