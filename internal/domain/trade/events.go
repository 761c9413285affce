package trade

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeDocumentCreated        = "DocumentCreated"
	EventTypeDocumentStatusChanged  = "DocumentStatusChanged"
	EventTypeDocumentConverted      = "DocumentConverted"
	EventTypeDispatchCreated        = "DispatchCreated"
	EventTypeDispatchRemoved        = "DispatchRemoved"
	EventTypePaymentRecorded        = "PaymentRecorded"
	EventTypePaymentRecordSubmitted = "PaymentRecordSubmitted"
	EventTypePaymentRecordVerified  = "PaymentRecordVerified"
	EventTypePaymentRecordRejected  = "PaymentRecordRejected"
	EventTypePaymentRecordEdited    = "PaymentRecordEdited"
)

// AggregateTypePaymentRecord is the aggregate type of payment records
const AggregateTypePaymentRecord = "PAYMENT_RECORD"

// DocumentCreatedEvent is raised when any commercial document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	Document    SourceRef       `json:"document"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(ref SourceRef, buyerID uuid.UUID, total decimal.Decimal) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, string(ref.Type), ref.ID),
		Document:        ref,
		BuyerID:         buyerID,
		TotalAmount:     total,
	}
}

// DocumentStatusChangedEvent is raised on every status transition
type DocumentStatusChangedEvent struct {
	shared.BaseDomainEvent
	Document   SourceRef `json:"document"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
}

// NewDocumentStatusChangedEvent creates a new DocumentStatusChangedEvent
func NewDocumentStatusChangedEvent(ref SourceRef, from, to string) *DocumentStatusChangedEvent {
	return &DocumentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentStatusChanged, string(ref.Type), ref.ID),
		Document:        ref,
		FromStatus:      from,
		ToStatus:        to,
	}
}

// DocumentConvertedEvent is raised when a document is converted into another
type DocumentConvertedEvent struct {
	shared.BaseDomainEvent
	Source SourceRef        `json:"source"`
	Target SourceRef        `json:"target"`
	Effect ConversionEffect `json:"effect"`
}

// NewDocumentConvertedEvent creates a new DocumentConvertedEvent
func NewDocumentConvertedEvent(source, target SourceRef, effect ConversionEffect) *DocumentConvertedEvent {
	return &DocumentConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentConverted, string(source.Type), source.ID),
		Source:          source,
		Target:          target,
		Effect:          effect,
	}
}

// DispatchCreatedEvent is raised when goods leave against a source document
type DispatchCreatedEvent struct {
	shared.BaseDomainEvent
	Dispatch         SourceRef `json:"dispatch"`
	Source           SourceRef `json:"source"`
	DispatchSequence int       `json:"dispatch_sequence"`
	TotalQuantity    int       `json:"total_quantity"`
}

// NewDispatchCreatedEvent creates a new DispatchCreatedEvent
func NewDispatchCreatedEvent(d *Dispatch) *DispatchCreatedEvent {
	return &DispatchCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeDispatchCreated, string(DocumentDispatch), d.ID),
		Dispatch:         d.Ref(),
		Source:           d.Source(),
		DispatchSequence: d.DispatchSequence,
		TotalQuantity:    d.TotalQuantity,
	}
}

// DispatchRemovedEvent is raised when the repair path deletes a dispatch
type DispatchRemovedEvent struct {
	shared.BaseDomainEvent
	Dispatch      SourceRef `json:"dispatch"`
	Source        SourceRef `json:"source"`
	TotalQuantity int       `json:"total_quantity"`
	RemovedBy     string    `json:"removed_by,omitempty"`
}

// NewDispatchRemovedEvent creates a new DispatchRemovedEvent
func NewDispatchRemovedEvent(d *Dispatch, removedBy string) *DispatchRemovedEvent {
	return &DispatchRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDispatchRemoved, string(DocumentDispatch), d.ID),
		Dispatch:        d.Ref(),
		Source:          d.Source(),
		TotalQuantity:   d.TotalQuantity,
		RemovedBy:       removedBy,
	}
}

// PaymentRecordedEvent is raised when a ledger entry is posted
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	Document      SourceRef       `json:"document"`
	EntryID       uuid.UUID       `json:"entry_id"`
	Kind          PaymentKind     `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(ref SourceRef, entry PaymentEntry, summary LedgerSummary) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, string(ref.Type), ref.ID),
		Document:        ref,
		EntryID:         entry.ID,
		Kind:            entry.Kind,
		Amount:          entry.Amount,
		BalanceDue:      summary.BalanceDue,
		PaymentStatus:   summary.PaymentStatus,
	}
}

// PaymentRecordEvent carries the state of a payment record at a lifecycle step
type PaymentRecordEvent struct {
	shared.BaseDomainEvent
	RecordNumber      string              `json:"record_number"`
	ProformaInvoiceID uuid.UUID           `json:"proforma_invoice_id"`
	Amount            decimal.Decimal     `json:"amount"`
	RecordedAmount    decimal.Decimal     `json:"recorded_amount"`
	Status            PaymentRecordStatus `json:"status"`
	Actor             string              `json:"actor,omitempty"`
}

func newPaymentRecordEvent(eventType string, r *PaymentRecord, actor string) *PaymentRecordEvent {
	return &PaymentRecordEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypePaymentRecord, r.ID),
		RecordNumber:      r.RecordNumber,
		ProformaInvoiceID: r.ProformaInvoiceID,
		Amount:            r.Amount,
		RecordedAmount:    r.RecordedAmount,
		Status:            r.Status,
		Actor:             actor,
	}
}

// NewPaymentRecordSubmittedEvent creates the event for a new PENDING record
func NewPaymentRecordSubmittedEvent(r *PaymentRecord) *PaymentRecordEvent {
	return newPaymentRecordEvent(EventTypePaymentRecordSubmitted, r, r.SubmittedBy)
}

// NewPaymentRecordVerifiedEvent creates the event for a verified record
func NewPaymentRecordVerifiedEvent(r *PaymentRecord) *PaymentRecordEvent {
	return newPaymentRecordEvent(EventTypePaymentRecordVerified, r, r.ReviewedBy)
}

// NewPaymentRecordRejectedEvent creates the event for a rejected record
func NewPaymentRecordRejectedEvent(r *PaymentRecord) *PaymentRecordEvent {
	return newPaymentRecordEvent(EventTypePaymentRecordRejected, r, r.ReviewedBy)
}

// PaymentRecordEditedEvent is raised when a verified record's amount changes
type PaymentRecordEditedEvent struct {
	*PaymentRecordEvent
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
}

// NewPaymentRecordEditedEvent creates a new PaymentRecordEditedEvent
func NewPaymentRecordEditedEvent(r *PaymentRecord, previous, next decimal.Decimal) *PaymentRecordEditedEvent {
	editor := ""
	if n := len(r.EditHistory); n > 0 {
		editor = r.EditHistory[n-1].EditedBy
	}
	return &PaymentRecordEditedEvent{
		PaymentRecordEvent: newPaymentRecordEvent(EventTypePaymentRecordEdited, r, editor),
		PreviousAmount:     previous,
		NewAmount:          next,
	}
}
