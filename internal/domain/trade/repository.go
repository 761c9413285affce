package trade

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// QuotationRepository defines the interface for quotation persistence
type QuotationRepository interface {
	// FindByID finds a quotation by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Quotation, error)

	// FindByNumber finds a quotation by its quotation number
	FindByNumber(ctx context.Context, number string) (*Quotation, error)

	// FindAll finds quotations with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]Quotation, error)

	// Count counts quotations matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Create inserts a new quotation
	Create(ctx context.Context, quotation *Quotation) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, quotation *Quotation) error
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Create(ctx context.Context, order *Order) error
	SaveWithLock(ctx context.Context, order *Order) error
}

// ProformaInvoiceRepository defines the interface for proforma invoice persistence
type ProformaInvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProformaInvoice, error)
	FindByNumber(ctx context.Context, number string) (*ProformaInvoice, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ProformaInvoice, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Create(ctx context.Context, pi *ProformaInvoice) error
	SaveWithLock(ctx context.Context, pi *ProformaInvoice) error
}

// DispatchRepository defines the interface for dispatch persistence
type DispatchRepository interface {
	// FindByID finds a dispatch by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Dispatch, error)

	// FindBySource returns every dispatch of a source ordered by dispatch_sequence
	FindBySource(ctx context.Context, sourceType DocumentType, sourceID uuid.UUID) ([]Dispatch, error)

	// Create inserts a new dispatch. A duplicate (source, sequence) surfaces as Conflict.
	Create(ctx context.Context, dispatch *Dispatch) error

	// SaveWithLock saves tracking metadata with optimistic locking
	SaveWithLock(ctx context.Context, dispatch *Dispatch) error

	// Delete hard-deletes a dispatch (repair path only)
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindBySource(ctx context.Context, sourceType DocumentType, sourceID uuid.UUID) ([]Invoice, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Create(ctx context.Context, invoice *Invoice) error
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRecordRepository defines the interface for payment record persistence
type PaymentRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentRecord, error)

	// FindByProformaInvoice lists the records submitted against a PI
	FindByProformaInvoice(ctx context.Context, piID uuid.UUID) ([]PaymentRecord, error)

	FindAll(ctx context.Context, filter shared.Filter) ([]PaymentRecord, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Create(ctx context.Context, record *PaymentRecord) error
	SaveWithLock(ctx context.Context, record *PaymentRecord) error
}
