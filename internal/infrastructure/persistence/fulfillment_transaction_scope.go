package persistence

import (
	"context"

	appfulfillment "github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements fulfillment.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfulfillment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides transaction-scoped repository instances.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Counters() sequence.CounterRepository {
	return NewGormCounterRepository(r.tx)
}

func (r *gormTransactionalRepositories) Quotations() trade.QuotationRepository {
	return NewGormQuotationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProformaInvoices() trade.ProformaInvoiceRepository {
	return NewGormProformaInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Dispatches() trade.DispatchRepository {
	return NewGormDispatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) Invoices() trade.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRecords() trade.PaymentRecordRepository {
	return NewGormPaymentRecordRepository(r.tx)
}

// NewFulfillmentRepositories builds the non-transactional repository set
func NewFulfillmentRepositories(db *gorm.DB) appfulfillment.Repositories {
	return appfulfillment.Repositories{
		Counters:         NewGormCounterRepository(db),
		Quotations:       NewGormQuotationRepository(db),
		Orders:           NewGormOrderRepository(db),
		ProformaInvoices: NewGormProformaInvoiceRepository(db),
		Dispatches:       NewGormDispatchRepository(db),
		Invoices:         NewGormInvoiceRepository(db),
		PaymentRecords:   NewGormPaymentRecordRepository(db),
	}
}

// Ensure interfaces are implemented
var _ appfulfillment.TransactionScope = (*GormTransactionScope)(nil)
var _ appfulfillment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
