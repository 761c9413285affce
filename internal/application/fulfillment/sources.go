package fulfillment

import (
	"context"
	"fmt"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
)

// sourceDocument is an Order or ProformaInvoice loaded for dispatch work
type sourceDocument interface {
	trade.DispatchSource
	shared.AggregateRoot
	DocumentStatus() string
}

// payableDocument is an Order, ProformaInvoice or Invoice loaded for ledger work
type payableDocument interface {
	trade.Payable
	shared.AggregateRoot
	DocumentStatus() string
}

func loadDispatchSource(ctx context.Context, repos TransactionalRepositories, sourceType trade.DocumentType, id uuid.UUID) (sourceDocument, error) {
	switch sourceType {
	case trade.DocumentOrder:
		return repos.Orders().FindByID(ctx, id)
	case trade.DocumentProformaInvoice:
		return repos.ProformaInvoices().FindByID(ctx, id)
	}
	return nil, shared.NewInvalidInputError("INVALID_SOURCE",
		fmt.Sprintf("Dispatches cannot be raised against a %s", sourceType.Label()))
}

func saveDispatchSource(ctx context.Context, repos TransactionalRepositories, src sourceDocument) error {
	switch doc := src.(type) {
	case *trade.Order:
		return repos.Orders().SaveWithLock(ctx, doc)
	case *trade.ProformaInvoice:
		return repos.ProformaInvoices().SaveWithLock(ctx, doc)
	}
	return fmt.Errorf("unsupported dispatch source %T", src)
}

func loadPayable(ctx context.Context, repos TransactionalRepositories, docType trade.DocumentType, id uuid.UUID) (payableDocument, error) {
	switch docType {
	case trade.DocumentOrder:
		return repos.Orders().FindByID(ctx, id)
	case trade.DocumentProformaInvoice:
		return repos.ProformaInvoices().FindByID(ctx, id)
	case trade.DocumentInvoice:
		return repos.Invoices().FindByID(ctx, id)
	}
	return nil, shared.NewInvalidInputError("INVALID_DOCUMENT_TYPE",
		fmt.Sprintf("Payments cannot be recorded against a %s", docType.Label()))
}

func savePayable(ctx context.Context, repos TransactionalRepositories, doc payableDocument) error {
	switch d := doc.(type) {
	case *trade.Order:
		return repos.Orders().SaveWithLock(ctx, d)
	case *trade.ProformaInvoice:
		return repos.ProformaInvoices().SaveWithLock(ctx, d)
	case *trade.Invoice:
		return repos.Invoices().SaveWithLock(ctx, d)
	}
	return fmt.Errorf("unsupported payable document %T", doc)
}
