package persistence

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var quotationQuery = documentQuery{
	searchColumns: []string{"quotation_number", "buyer_name"},
	filterColumns: map[string]string{"status": "status", "buyer_id": "buyer_id", "source_order_id": "source_order_id"},
	sortFields:    QuotationSortFields,
}

// GormQuotationRepository implements QuotationRepository using GORM
type GormQuotationRepository struct {
	db *gorm.DB
}

// NewGormQuotationRepository creates a new GormQuotationRepository
func NewGormQuotationRepository(db *gorm.DB) *GormQuotationRepository {
	return &GormQuotationRepository{db: db}
}

// FindByID finds a quotation by ID
func (r *GormQuotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Quotation, error) {
	return findOne[trade.Quotation](ctx, r.db, "QUOTATION_NOT_FOUND", "Quotation", "id = ?", id)
}

// FindByNumber finds a quotation by its quotation number
func (r *GormQuotationRepository) FindByNumber(ctx context.Context, number string) (*trade.Quotation, error) {
	if err := checkNumber(number, sequence.EntityQuotation); err != nil {
		return nil, err
	}
	return findOne[trade.Quotation](ctx, r.db, "QUOTATION_NOT_FOUND", "Quotation", "quotation_number = ?", number)
}

// FindAll finds quotations with filtering
func (r *GormQuotationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Quotation, error) {
	return findAll[trade.Quotation](ctx, r.db, quotationQuery, filter)
}

// Count counts quotations matching the filter
func (r *GormQuotationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return count[trade.Quotation](ctx, r.db, quotationQuery, filter)
}

// Create inserts a new quotation
func (r *GormQuotationRepository) Create(ctx context.Context, quotation *trade.Quotation) error {
	return create(ctx, r.db, quotation, "quotation")
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormQuotationRepository) SaveWithLock(ctx context.Context, quotation *trade.Quotation) error {
	return saveWithLock(ctx, r.db, quotation, "quotation")
}

// Ensure GormQuotationRepository implements QuotationRepository
var _ trade.QuotationRepository = (*GormQuotationRepository)(nil)
