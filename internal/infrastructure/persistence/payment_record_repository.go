package persistence

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var paymentRecordQuery = documentQuery{
	searchColumns: []string{"record_number", "pi_number", "reference"},
	filterColumns: map[string]string{
		"status":              "status",
		"buyer_id":            "buyer_id",
		"proforma_invoice_id": "proforma_invoice_id",
	},
	sortFields: PaymentRecordSortFields,
}

// GormPaymentRecordRepository implements PaymentRecordRepository using GORM
type GormPaymentRecordRepository struct {
	db *gorm.DB
}

// NewGormPaymentRecordRepository creates a new GormPaymentRecordRepository
func NewGormPaymentRecordRepository(db *gorm.DB) *GormPaymentRecordRepository {
	return &GormPaymentRecordRepository{db: db}
}

// FindByID finds a payment record by ID
func (r *GormPaymentRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.PaymentRecord, error) {
	return findOne[trade.PaymentRecord](ctx, r.db, "PAYMENT_RECORD_NOT_FOUND", "Payment record", "id = ?", id)
}

// FindByProformaInvoice lists the records submitted against a PI, oldest first
func (r *GormPaymentRecordRepository) FindByProformaInvoice(ctx context.Context, piID uuid.UUID) ([]trade.PaymentRecord, error) {
	var records []trade.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("proforma_invoice_id = ?", piID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindAll finds payment records with filtering
func (r *GormPaymentRecordRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.PaymentRecord, error) {
	return findAll[trade.PaymentRecord](ctx, r.db, paymentRecordQuery, filter)
}

// Count counts payment records matching the filter
func (r *GormPaymentRecordRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return count[trade.PaymentRecord](ctx, r.db, paymentRecordQuery, filter)
}

// Create inserts a new payment record
func (r *GormPaymentRecordRepository) Create(ctx context.Context, record *trade.PaymentRecord) error {
	return create(ctx, r.db, record, "payment record")
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormPaymentRecordRepository) SaveWithLock(ctx context.Context, record *trade.PaymentRecord) error {
	return saveWithLock(ctx, r.db, record, "payment record")
}

// Ensure GormPaymentRecordRepository implements PaymentRecordRepository
var _ trade.PaymentRecordRepository = (*GormPaymentRecordRepository)(nil)
