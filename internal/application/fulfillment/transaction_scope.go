package fulfillment

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
)

// TransactionScope defines the interface for executing operations within a transaction.
// This allows the application layer to coordinate transactions without depending on
// infrastructure details.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the fulfillment repositories within a transaction.
// All repositories returned share the same underlying database transaction, so an
// identifier taken from Counters is returned to the series if the transaction rolls back.
type TransactionalRepositories interface {
	Counters() sequence.CounterRepository
	Quotations() trade.QuotationRepository
	Orders() trade.OrderRepository
	ProformaInvoices() trade.ProformaInvoiceRepository
	Dispatches() trade.DispatchRepository
	Invoices() trade.InvoiceRepository
	PaymentRecords() trade.PaymentRecordRepository
}

// Repositories bundles the repositories used outside a transaction
type Repositories struct {
	Counters         sequence.CounterRepository
	Quotations       trade.QuotationRepository
	Orders           trade.OrderRepository
	ProformaInvoices trade.ProformaInvoiceRepository
	Dispatches       trade.DispatchRepository
	Invoices         trade.InvoiceRepository
	PaymentRecords   trade.PaymentRecordRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Counters returns the identifier counter repository.
func (s *NoOpTransactionScope) Counters() sequence.CounterRepository {
	return s.repos.Counters
}

// Quotations returns the quotation repository.
func (s *NoOpTransactionScope) Quotations() trade.QuotationRepository {
	return s.repos.Quotations
}

// Orders returns the order repository.
func (s *NoOpTransactionScope) Orders() trade.OrderRepository {
	return s.repos.Orders
}

// ProformaInvoices returns the proforma invoice repository.
func (s *NoOpTransactionScope) ProformaInvoices() trade.ProformaInvoiceRepository {
	return s.repos.ProformaInvoices
}

// Dispatches returns the dispatch repository.
func (s *NoOpTransactionScope) Dispatches() trade.DispatchRepository {
	return s.repos.Dispatches
}

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() trade.InvoiceRepository {
	return s.repos.Invoices
}

// PaymentRecords returns the payment record repository.
func (s *NoOpTransactionScope) PaymentRecords() trade.PaymentRecordRepository {
	return s.repos.PaymentRecords
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
