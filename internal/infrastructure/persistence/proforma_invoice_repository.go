package persistence

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var proformaInvoiceQuery = documentQuery{
	searchColumns: []string{"pi_number", "buyer_name", "source_number"},
	filterColumns: map[string]string{
		"status":          "status",
		"buyer_id":        "buyer_id",
		"source_id":       "source_id",
		"payment_status":  "payment_status",
		"dispatch_status": "dispatch_status",
	},
	sortFields: ProformaInvoiceSortFields,
}

// GormProformaInvoiceRepository implements ProformaInvoiceRepository using GORM
type GormProformaInvoiceRepository struct {
	db *gorm.DB
}

// NewGormProformaInvoiceRepository creates a new GormProformaInvoiceRepository
func NewGormProformaInvoiceRepository(db *gorm.DB) *GormProformaInvoiceRepository {
	return &GormProformaInvoiceRepository{db: db}
}

// FindByID finds a proforma invoice by ID
func (r *GormProformaInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.ProformaInvoice, error) {
	return findOne[trade.ProformaInvoice](ctx, r.db, "PROFORMA_INVOICE_NOT_FOUND", "Proforma invoice", "id = ?", id)
}

// FindByNumber finds a proforma invoice by its PI number
func (r *GormProformaInvoiceRepository) FindByNumber(ctx context.Context, number string) (*trade.ProformaInvoice, error) {
	if err := checkNumber(number, sequence.EntityProformaInvoice); err != nil {
		return nil, err
	}
	return findOne[trade.ProformaInvoice](ctx, r.db, "PROFORMA_INVOICE_NOT_FOUND", "Proforma invoice", "pi_number = ?", number)
}

// FindAll finds proforma invoices with filtering
func (r *GormProformaInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.ProformaInvoice, error) {
	return findAll[trade.ProformaInvoice](ctx, r.db, proformaInvoiceQuery, filter)
}

// Count counts proforma invoices matching the filter
func (r *GormProformaInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return count[trade.ProformaInvoice](ctx, r.db, proformaInvoiceQuery, filter)
}

// Create inserts a new proforma invoice
func (r *GormProformaInvoiceRepository) Create(ctx context.Context, pi *trade.ProformaInvoice) error {
	return create(ctx, r.db, pi, "proforma invoice")
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormProformaInvoiceRepository) SaveWithLock(ctx context.Context, pi *trade.ProformaInvoice) error {
	return saveWithLock(ctx, r.db, pi, "proforma invoice")
}

// Ensure GormProformaInvoiceRepository implements ProformaInvoiceRepository
var _ trade.ProformaInvoiceRepository = (*GormProformaInvoiceRepository)(nil)
