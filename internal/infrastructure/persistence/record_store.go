package persistence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// recordStore implements shared.RecordStore[T] over a gorm model M.
// Criteria keys and partial-update keys are column names checked against
// whitelists; anything else is rejected as INVALID_INPUT.
type recordStore[T any, M any] struct {
	db            *Database
	toDomain      func(*M) *T
	fromDomain    func(*T) *M
	filterable    map[string]bool
	updatable     map[string]bool
	sortFields    map[string]bool
	searchColumns []string
}

func (s *recordStore[T, M]) model() *M {
	return new(M)
}

// List returns one page of the company's records
func (s *recordStore[T, M]) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]T, int64, error) {
	return s.Filter(ctx, companyID, nil, filter)
}

// Filter returns one page of the company's records matching criteria.
// filter.Criteria is merged under criteria.
func (s *recordStore[T, M]) Filter(ctx context.Context, companyID uuid.UUID, criteria shared.Criteria, filter shared.Filter) ([]T, int64, error) {
	merged := make(shared.Criteria, len(criteria)+len(filter.Criteria))
	for k, v := range filter.Criteria {
		merged[k] = v
	}
	for k, v := range criteria {
		merged[k] = v
	}

	query := s.db.Conn(ctx).Model(s.model()).Where("company_id = ?", companyID)
	query, err := applyCriteria(query, merged, s.filterable)
	if err != nil {
		return nil, 0, err
	}
	query = applySearch(query, filter.Search, s.searchColumns)

	return s.page(query, filter)
}

// page counts and fetches one page of query
func (s *recordStore[T, M]) page(query *gorm.DB, filter shared.Filter) ([]T, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	var rows []M
	if err := applyPaging(query, filter, s.sortFields).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]T, len(rows))
	for i := range rows {
		out[i] = *s.toDomain(&rows[i])
	}
	return out, total, nil
}

// Create inserts one record
func (s *recordStore[T, M]) Create(ctx context.Context, record *T) error {
	if err := s.db.Conn(ctx).Create(s.fromDomain(record)).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// BulkCreate inserts all records in one statement batch. Callers wanting
// all-or-nothing semantics wrap the call in RunInTx.
func (s *recordStore[T, M]) BulkCreate(ctx context.Context, records []*T) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*M, len(records))
	for i, r := range records {
		rows[i] = s.fromDomain(r)
	}
	if err := s.db.Conn(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Update shallow-merges partial into the record and returns the merged record.
// The version is bumped so concurrent version-checked saves notice the change.
func (s *recordStore[T, M]) Update(ctx context.Context, companyID, id uuid.UUID, partial map[string]any) (*T, error) {
	if len(partial) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Nothing to update")
	}
	values := make(map[string]any, len(partial)+2)
	for k, v := range partial {
		if !s.updatable[k] {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Field %q cannot be updated", k))
		}
		values[k] = v
	}
	values["updated_at"] = time.Now()
	values["version"] = gorm.Expr("version + 1")

	result := s.db.Conn(ctx).Model(s.model()).
		Where("company_id = ? AND id = ?", companyID, id).
		Updates(values)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, shared.ErrNotFound
	}

	row := s.model()
	if err := s.db.Conn(ctx).Where("company_id = ? AND id = ?", companyID, id).First(row).Error; err != nil {
		return nil, translateError(err)
	}
	return s.toDomain(row), nil
}

// findOne loads one company-scoped row by id
func (s *recordStore[T, M]) findOne(ctx context.Context, companyID, id uuid.UUID) (*T, error) {
	row := s.model()
	if err := s.db.Conn(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(row).Error; err != nil {
		return nil, translateError(err)
	}
	return s.toDomain(row), nil
}

// saveWithLock writes every column of row when the stored version is version-1
func saveWithLock(ctx context.Context, db *Database, row any, id uuid.UUID, version int) error {
	result := db.Conn(ctx).
		Model(row).
		Select("*").
		Where("id = ? AND version = ?", id, version-1).
		Updates(row)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// applyCriteria turns an equality/membership map into WHERE clauses.
// Keys are applied in sorted order so generated SQL is stable.
func applyCriteria(query *gorm.DB, criteria shared.Criteria, allowed map[string]bool) (*gorm.DB, error) {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !allowed[k] {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Cannot filter by %q", k))
		}
		v := criteria[k]
		if v == nil {
			query = query.Where(k + " IS NULL")
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			if rv.Len() == 0 {
				query = query.Where("1 = 0")
				continue
			}
			query = query.Where(k+" IN ?", v)
			continue
		}
		query = query.Where(k+" = ?", v)
	}
	return query, nil
}

// applySearch ORs a case-insensitive LIKE over the given columns
func applySearch(query *gorm.DB, search string, columns []string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return query
	}
	pattern := "%" + strings.ToLower(search) + "%"
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		clauses[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = pattern
	}
	return query.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

// applyPaging applies validated ordering, offset and limit
func applyPaging(query *gorm.DB, filter shared.Filter, sortFields map[string]bool) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, sortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// translateError maps gorm errors onto domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	default:
		return err
	}
}
