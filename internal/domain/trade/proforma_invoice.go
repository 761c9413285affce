package trade

import (
	"fmt"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ProformaInvoiceStatus represents the status of a proforma invoice
type ProformaInvoiceStatus string

const (
	ProformaInvoiceStatusPending  ProformaInvoiceStatus = "PENDING"
	ProformaInvoiceStatusSent     ProformaInvoiceStatus = "SENT"
	ProformaInvoiceStatusApproved ProformaInvoiceStatus = "APPROVED"
	ProformaInvoiceStatusRejected ProformaInvoiceStatus = "REJECTED"
	ProformaInvoiceStatusExpired  ProformaInvoiceStatus = "EXPIRED"
)

// IsValid checks if the status is a valid ProformaInvoiceStatus
func (s ProformaInvoiceStatus) IsValid() bool {
	switch s {
	case ProformaInvoiceStatusPending, ProformaInvoiceStatusSent, ProformaInvoiceStatusApproved,
		ProformaInvoiceStatusRejected, ProformaInvoiceStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of ProformaInvoiceStatus
func (s ProformaInvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ProformaInvoiceStatus) CanTransitionTo(target ProformaInvoiceStatus) bool {
	switch s {
	case ProformaInvoiceStatusPending:
		return target == ProformaInvoiceStatusSent || target == ProformaInvoiceStatusApproved ||
			target == ProformaInvoiceStatusRejected || target == ProformaInvoiceStatusExpired
	case ProformaInvoiceStatusSent:
		return target == ProformaInvoiceStatusApproved || target == ProformaInvoiceStatusRejected ||
			target == ProformaInvoiceStatusExpired
	}
	return false
}

// ProformaInvoice is a pre-shipment billing document
type ProformaInvoice struct {
	shared.BaseAggregateRoot
	Totals
	FulfillmentState
	Ledger
	PINumber           string                `gorm:"column:pi_number;type:varchar(50);not null;uniqueIndex"`
	BuyerID            uuid.UUID             `gorm:"type:uuid;not null;index"`
	BuyerName          string                `gorm:"type:varchar(200)"`
	Items              LineItems             `gorm:"type:jsonb;not null"`
	Status             ProformaInvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	AllocationComplete bool                  `gorm:"not null;default:false"`
	SourceType         DocumentType          `gorm:"type:varchar(30)"`
	SourceID           *uuid.UUID            `gorm:"type:uuid;index"`
	SourceNumber       string                `gorm:"type:varchar(50)"`
	InvoiceID          *uuid.UUID            `gorm:"type:uuid"`
	Notes              string                `gorm:"type:text"`
	ValidUntil         *time.Time
	SentAt             *time.Time
	ApprovedAt         *time.Time
}

// TableName returns the table name for GORM
func (ProformaInvoice) TableName() string {
	return "proforma_invoices"
}

// NewProformaInvoice creates a new proforma invoice in PENDING status.
// source is optional; a PI can be raised directly for a buyer.
func NewProformaInvoice(number string, buyer Buyer, items LineItems, pricing PricingInput, source *SourceRef, validUntil *time.Time) (*ProformaInvoice, error) {
	if number == "" {
		return nil, shared.NewInvalidInputError("INVALID_PI_NUMBER", "Proforma invoice number cannot be empty")
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

	pi := &ProformaInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Totals:            totals,
		Ledger:            NewLedger(totals.TotalAmount),
		PINumber:          number,
		BuyerID:           buyer.ID,
		BuyerName:         buyer.Name,
		Items:             items,
		Status:            ProformaInvoiceStatusPending,
		ValidUntil:        validUntil,
	}
	if source != nil {
		id := source.ID
		pi.SourceType = source.Type
		pi.SourceID = &id
		pi.SourceNumber = source.Number
	}
	pi.FulfillmentState.ApplyReconciliation(Reconcile(pi.Ref(), items, nil))
	pi.AddDomainEvent(NewDocumentCreatedEvent(pi.Ref(), buyer.ID, totals.TotalAmount))
	return pi, nil
}

// Ref returns a typed reference to the proforma invoice
func (pi *ProformaInvoice) Ref() SourceRef {
	return SourceRef{Type: DocumentProformaInvoice, ID: pi.ID, Number: pi.PINumber}
}

// DocumentStatus returns the status as a plain string
func (pi *ProformaInvoice) DocumentStatus() string {
	return string(pi.Status)
}

// LineItems returns the PI lines
func (pi *ProformaInvoice) LineItems() LineItems {
	return pi.Items
}

// Fulfillment returns the derived quantity fields
func (pi *ProformaInvoice) Fulfillment() FulfillmentState {
	return pi.FulfillmentState
}

func (pi *ProformaInvoice) transition(target ProformaInvoiceStatus) error {
	if !pi.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot change proforma invoice from %s to %s", pi.Status, target))
	}
	from := pi.Status
	pi.Status = target
	pi.Touch()
	pi.AddDomainEvent(NewDocumentStatusChangedEvent(pi.Ref(), string(from), string(target)))
	return nil
}

// Send marks the PI as sent to the buyer
func (pi *ProformaInvoice) Send() error {
	if err := pi.transition(ProformaInvoiceStatusSent); err != nil {
		return err
	}
	now := time.Now()
	pi.SentAt = &now
	return nil
}

// Approve records buyer approval
func (pi *ProformaInvoice) Approve() error {
	if err := pi.transition(ProformaInvoiceStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	pi.ApprovedAt = &now
	return nil
}

// Reject records buyer rejection. A PI with payments cannot be rejected.
func (pi *ProformaInvoice) Reject(reason string) error {
	if pi.PaymentReceived.IsPositive() {
		return shared.NewInvalidStateError("PI_HAS_PAYMENTS",
			fmt.Sprintf("Proforma invoice %s has received payments and cannot be rejected", pi.PINumber))
	}
	if err := pi.transition(ProformaInvoiceStatusRejected); err != nil {
		return err
	}
	if reason != "" {
		pi.Notes = reason
	}
	return nil
}

// Expire marks the PI as expired
func (pi *ProformaInvoice) Expire() error {
	return pi.transition(ProformaInvoiceStatusExpired)
}

// AcceptsPayments reports whether payments may be applied to the PI
func (pi *ProformaInvoice) AcceptsPayments() error {
	if pi.Status == ProformaInvoiceStatusRejected {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Proforma invoice %s is rejected and cannot accept payments", pi.PINumber))
	}
	return nil
}

// LinkInvoice records the invoice raised for the whole PI
func (pi *ProformaInvoice) LinkInvoice(invoiceID uuid.UUID) error {
	if pi.InvoiceID != nil {
		return shared.NewInvalidStateError("ALREADY_INVOICED",
			fmt.Sprintf("Proforma invoice %s has already been invoiced", pi.PINumber))
	}
	pi.InvoiceID = &invoiceID
	pi.Touch()
	return nil
}

// CanDispatch checks the PI status allows a new dispatch
func (pi *ProformaInvoice) CanDispatch() error {
	return ConversionRules[ConversionKey{From: DocumentProformaInvoice, To: DocumentDispatch}].Check(string(pi.Status))
}

// ApplyReconciliation stores the recomputed quantities. Allocation is
// complete once every unit has shipped.
func (pi *ProformaInvoice) ApplyReconciliation(r ReconcileResult) error {
	pi.FulfillmentState.ApplyReconciliation(r)
	pi.AllocationComplete = r.PendingQuantity == 0 && r.TotalQuantity > 0
	pi.Touch()
	return nil
}

// RecordPayment applies a payment to the PI ledger
func (pi *ProformaInvoice) RecordPayment(in PaymentInput) (PaymentEntry, error) {
	if err := pi.AcceptsPayments(); err != nil {
		return PaymentEntry{}, err
	}
	entry, err := pi.Ledger.ApplyPayment(pi.TotalAmount, in)
	if err != nil {
		return PaymentEntry{}, err
	}
	pi.Touch()
	pi.AddDomainEvent(NewPaymentRecordedEvent(pi.Ref(), entry, pi.LedgerSummary()))
	return entry, nil
}

// AdjustPayment posts a correction to the PI ledger
func (pi *ProformaInvoice) AdjustPayment(in PaymentInput) (PaymentEntry, error) {
	entry, err := pi.Ledger.ApplyAdjustment(pi.TotalAmount, in)
	if err != nil {
		return PaymentEntry{}, err
	}
	pi.Touch()
	pi.AddDomainEvent(NewPaymentRecordedEvent(pi.Ref(), entry, pi.LedgerSummary()))
	return entry, nil
}

// LedgerSummary returns the payment view of the PI
func (pi *ProformaInvoice) LedgerSummary() LedgerSummary {
	return pi.Ledger.Summary(pi.TotalAmount)
}
