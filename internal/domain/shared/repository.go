package shared

import (
	"context"

	"github.com/google/uuid"
)

// Criteria is an equality/membership map over record fields.
// A slice value means "field IN (...)", anything else means "field = value".
type Criteria map[string]any

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Criteria Criteria
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Criteria: make(Criteria),
	}
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	if f.Page < 1 || f.PageSize < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// RecordStore is the generic collection contract every persisted entity kind
// offers: list, filter, create, update (shallow merge) and bulk create.
// There is no delete; deactivation is an update of is_active.
type RecordStore[T any] interface {
	List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]T, int64, error)
	Filter(ctx context.Context, companyID uuid.UUID, criteria Criteria, filter Filter) ([]T, int64, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, companyID, id uuid.UUID, partial map[string]any) (*T, error)
	BulkCreate(ctx context.Context, records []*T) error
}

// Transactor runs fn inside one storage transaction. Repository calls made
// with the context handed to fn join that transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
