package trade

import (
	"fmt"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded  InvoiceStatus = "REFUNDED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartial, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsClosed reports whether the invoice no longer accepts payments
func (s InvoiceStatus) IsClosed() bool {
	return s == InvoiceStatusCancelled || s == InvoiceStatusRefunded
}

// Invoice is the final billing document for an order, PI or single dispatch
type Invoice struct {
	shared.BaseAggregateRoot
	Totals
	Ledger
	InvoiceNumber string        `gorm:"type:varchar(50);not null;uniqueIndex"`
	SourceType    DocumentType  `gorm:"type:varchar(30);not null;index:idx_invoice_source,priority:1"`
	SourceID      uuid.UUID     `gorm:"type:uuid;not null;index:idx_invoice_source,priority:2"`
	SourceNumber  string        `gorm:"type:varchar(50)"`
	DispatchID    *uuid.UUID    `gorm:"type:uuid;index"`
	BuyerID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	BuyerName     string        `gorm:"type:varchar(200)"`
	Items         LineItems     `gorm:"type:jsonb;not null"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	Notes         string        `gorm:"type:text"`
	DueDate       *time.Time
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates an invoice for a source document. dispatchID is set when
// only one dispatch of the source is being billed.
func NewInvoice(number string, source SourceRef, dispatchID *uuid.UUID, buyer Buyer, items LineItems, pricing PricingInput, dueDate *time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewInvalidInputError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if source.Type != DocumentOrder && source.Type != DocumentProformaInvoice {
		return nil, shared.NewInvalidInputError("INVALID_SOURCE",
			fmt.Sprintf("Invoices cannot be raised against a %s", source.Type.Label()))
	}
	if err := buyer.validate(); err != nil {
		return nil, err
	}
	if err := items.Validate(); err != nil {
		return nil, err
	}
	items.Recalculate()
	totals, err := ComputeTotals(items, pricing)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Totals:            totals,
		Ledger:            NewLedger(totals.TotalAmount),
		InvoiceNumber:     number,
		SourceType:        source.Type,
		SourceID:          source.ID,
		SourceNumber:      source.Number,
		DispatchID:        dispatchID,
		BuyerID:           buyer.ID,
		BuyerName:         buyer.Name,
		Items:             items,
		DueDate:           dueDate,
	}
	inv.syncStatus()
	inv.AddDomainEvent(NewDocumentCreatedEvent(inv.Ref(), buyer.ID, totals.TotalAmount))
	return inv, nil
}

// Ref returns a typed reference to the invoice
func (inv *Invoice) Ref() SourceRef {
	return SourceRef{Type: DocumentInvoice, ID: inv.ID, Number: inv.InvoiceNumber}
}

// DocumentStatus returns the status as a plain string
func (inv *Invoice) DocumentStatus() string {
	return string(inv.Status)
}

// syncStatus makes the invoice status follow the ledger. OVERDUE is kept
// until the invoice is fully paid.
func (inv *Invoice) syncStatus() {
	if inv.Status.IsClosed() {
		return
	}
	var target InvoiceStatus
	switch inv.PaymentStatus {
	case PaymentStatusPaid:
		target = InvoiceStatusPaid
	case PaymentStatusPartial:
		target = InvoiceStatusPartial
	default:
		target = InvoiceStatusUnpaid
	}
	if inv.Status == InvoiceStatusOverdue && target != InvoiceStatusPaid {
		return
	}
	if inv.Status == target {
		return
	}
	from := inv.Status
	inv.Status = target
	if target == InvoiceStatusPaid {
		now := time.Now()
		inv.PaidAt = &now
	}
	if from != "" {
		inv.AddDomainEvent(NewDocumentStatusChangedEvent(inv.Ref(), string(from), string(target)))
	}
}

func (inv *Invoice) setStatus(target InvoiceStatus) {
	from := inv.Status
	inv.Status = target
	inv.Touch()
	inv.AddDomainEvent(NewDocumentStatusChangedEvent(inv.Ref(), string(from), string(target)))
}

// MarkOverdue flags an unpaid or partially paid invoice past its due date
func (inv *Invoice) MarkOverdue() error {
	if inv.Status != InvoiceStatusUnpaid && inv.Status != InvoiceStatusPartial {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot mark invoice %s overdue from %s", inv.InvoiceNumber, inv.Status))
	}
	inv.setStatus(InvoiceStatusOverdue)
	return nil
}

// Cancel voids an invoice that has not received any payment
func (inv *Invoice) Cancel() error {
	if inv.Status.IsClosed() || inv.Status == InvoiceStatusPaid {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel invoice %s from %s", inv.InvoiceNumber, inv.Status))
	}
	if inv.PaymentReceived.IsPositive() {
		return shared.NewInvalidStateError("INVOICE_HAS_PAYMENTS",
			fmt.Sprintf("Invoice %s has received payments and cannot be cancelled", inv.InvoiceNumber))
	}
	inv.setStatus(InvoiceStatusCancelled)
	return nil
}

// Refund marks a paid or partially paid invoice as refunded
func (inv *Invoice) Refund() error {
	if !inv.PaymentReceived.IsPositive() || inv.Status.IsClosed() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot refund invoice %s from %s", inv.InvoiceNumber, inv.Status))
	}
	inv.setStatus(InvoiceStatusRefunded)
	return nil
}

// RecordPayment applies a payment to the invoice ledger
func (inv *Invoice) RecordPayment(in PaymentInput) (PaymentEntry, error) {
	if inv.Status.IsClosed() {
		return PaymentEntry{}, shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Invoice %s is %s and cannot accept payments", inv.InvoiceNumber, inv.Status))
	}
	entry, err := inv.Ledger.ApplyPayment(inv.TotalAmount, in)
	if err != nil {
		return PaymentEntry{}, err
	}
	inv.syncStatus()
	inv.Touch()
	inv.AddDomainEvent(NewPaymentRecordedEvent(inv.Ref(), entry, inv.LedgerSummary()))
	return entry, nil
}

// AdjustPayment posts a correction to the invoice ledger
func (inv *Invoice) AdjustPayment(in PaymentInput) (PaymentEntry, error) {
	if inv.Status.IsClosed() {
		return PaymentEntry{}, shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Invoice %s is %s and cannot be adjusted", inv.InvoiceNumber, inv.Status))
	}
	entry, err := inv.Ledger.ApplyAdjustment(inv.TotalAmount, in)
	if err != nil {
		return PaymentEntry{}, err
	}
	inv.syncStatus()
	inv.Touch()
	inv.AddDomainEvent(NewPaymentRecordedEvent(inv.Ref(), entry, inv.LedgerSummary()))
	return entry, nil
}

// LedgerSummary returns the payment view of the invoice
func (inv *Invoice) LedgerSummary() LedgerSummary {
	return inv.Ledger.Summary(inv.TotalAmount)
}
