package persistence

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var invoiceQuery = documentQuery{
	searchColumns: []string{"invoice_number", "buyer_name", "source_number"},
	filterColumns: map[string]string{
		"status":      "status",
		"buyer_id":    "buyer_id",
		"source_type": "source_type",
		"source_id":   "source_id",
		"dispatch_id": "dispatch_id",
	},
	sortFields: InvoiceSortFields,
}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	return findOne[trade.Invoice](ctx, r.db, "INVOICE_NOT_FOUND", "Invoice", "id = ?", id)
}

// FindByNumber finds an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*trade.Invoice, error) {
	if err := checkNumber(number, sequence.EntityInvoice); err != nil {
		return nil, err
	}
	return findOne[trade.Invoice](ctx, r.db, "INVOICE_NOT_FOUND", "Invoice", "invoice_number = ?", number)
}

// FindBySource lists the invoices raised against a source, oldest first
func (r *GormInvoiceRepository) FindBySource(ctx context.Context, sourceType trade.DocumentType, sourceID uuid.UUID) ([]trade.Invoice, error) {
	var invoices []trade.Invoice
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindAll finds invoices with filtering
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Invoice, error) {
	return findAll[trade.Invoice](ctx, r.db, invoiceQuery, filter)
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return count[trade.Invoice](ctx, r.db, invoiceQuery, filter)
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *trade.Invoice) error {
	return create(ctx, r.db, invoice, "invoice")
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *trade.Invoice) error {
	return saveWithLock(ctx, r.db, invoice, "invoice")
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ trade.InvoiceRepository = (*GormInvoiceRepository)(nil)
