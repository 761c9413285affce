package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"gorm.io/gorm"
)

// checkNumber rejects an identifier that belongs to none of the given series,
// so malformed numbers fail as InvalidInput without a query
func checkNumber(number string, series ...sequence.EntityType) error {
	var err error
	for _, t := range series {
		if _, _, err = sequence.Registry[t].Parse(number); err == nil {
			return nil
		}
	}
	return err
}

// documentQuery describes how a document table is searched, filtered and sorted
type documentQuery struct {
	// searchColumns are matched case-insensitively against filter.Search
	searchColumns []string
	// filterColumns maps filter keys to the column compared with equality
	filterColumns map[string]string
	sortFields    map[string]bool
}

func (q documentQuery) apply(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = q.applyWithoutPagination(query, filter)

	if limit := filter.Limit(); limit > 0 {
		query = query.Offset(filter.Offset()).Limit(limit)
	}

	orderBy := ValidateSortField(filter.OrderBy, q.sortFields, "created_at")
	return query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
}

func (q documentQuery) applyWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" && len(q.searchColumns) > 0 {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		clauses := make([]string, len(q.searchColumns))
		args := make([]interface{}, len(q.searchColumns))
		for i, col := range q.searchColumns {
			clauses[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = pattern
		}
		query = query.Where(strings.Join(clauses, " OR "), args...)
	}

	for key, value := range filter.Filters {
		switch key {
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		default:
			if col, ok := q.filterColumns[key]; ok {
				query = query.Where(col+" = ?", value)
			}
		}
	}
	return query
}

// findAll runs a filtered, paginated query for documents of type T
func findAll[T any](ctx context.Context, db *gorm.DB, q documentQuery, filter shared.Filter) ([]T, error) {
	var out []T
	if err := q.apply(db.WithContext(ctx).Model(new(T)), filter).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// count counts documents of type T matching the filter
func count[T any](ctx context.Context, db *gorm.DB, q documentQuery, filter shared.Filter) (int64, error) {
	var n int64
	if err := q.applyWithoutPagination(db.WithContext(ctx).Model(new(T)), filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// findOne loads a single row of type T. A missing row maps to a NotFound error
// carrying code.
func findOne[T any](ctx context.Context, db *gorm.DB, code, label string, query string, args ...interface{}) (*T, error) {
	var out T
	if err := db.WithContext(ctx).Where(query, args...).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(code, fmt.Sprintf("%s not found", label))
		}
		return nil, err
	}
	return &out, nil
}

// create inserts a new aggregate. A unique violation maps to a Conflict error.
func create(ctx context.Context, db *gorm.DB, aggregate shared.AggregateRoot, label string) error {
	if err := db.WithContext(ctx).Create(aggregate).Error; err != nil {
		return translateError(err, label)
	}
	return nil
}

// saveWithLock writes every column of an aggregate in a single UPDATE guarded
// by the version the aggregate was loaded at. The version is bumped on success.
// Zero affected rows means another writer got there first.
func saveWithLock(ctx context.Context, db *gorm.DB, aggregate shared.AggregateRoot, label string) error {
	expected := aggregate.BumpVersion()

	result := db.WithContext(ctx).
		Model(aggregate).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(aggregate)
	if result.Error != nil {
		return translateError(result.Error, label)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("CONCURRENT_MODIFICATION",
			fmt.Sprintf("The %s has been modified by another user", label))
	}
	return nil
}

// translateError maps driver-level constraint violations to domain errors
func translateError(err error, label string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.NewConflictError("DUPLICATE_"+strings.ToUpper(strings.ReplaceAll(label, " ", "_")),
			fmt.Sprintf("A conflicting %s already exists", label))
	}
	return err
}

// isUniqueViolation recognises unique-constraint errors from postgres and
// sqlite when the dialector does not translate them
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
