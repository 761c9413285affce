package trade

import (
	"fmt"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// QuotationStatus represents the status of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "DRAFT"
	QuotationStatusSent      QuotationStatus = "SENT"
	QuotationStatusAccepted  QuotationStatus = "ACCEPTED"
	QuotationStatusRejected  QuotationStatus = "REJECTED"
	QuotationStatusExpired   QuotationStatus = "EXPIRED"
	QuotationStatusConverted QuotationStatus = "CONVERTED"
)

// IsValid checks if the status is a valid QuotationStatus
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted,
		QuotationStatusRejected, QuotationStatusExpired, QuotationStatusConverted:
		return true
	}
	return false
}

// String returns the string representation of QuotationStatus
func (s QuotationStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s QuotationStatus) CanTransitionTo(target QuotationStatus) bool {
	switch s {
	case QuotationStatusDraft:
		return target == QuotationStatusSent
	case QuotationStatusSent:
		return target == QuotationStatusAccepted || target == QuotationStatusRejected || target == QuotationStatusExpired
	case QuotationStatusAccepted:
		return target == QuotationStatusConverted
	case QuotationStatusRejected, QuotationStatusExpired, QuotationStatusConverted:
		return false // Terminal states
	}
	return false
}

// Quotation is a priced offer to a buyer
type Quotation struct {
	shared.BaseAggregateRoot
	Totals
	QuotationNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	BuyerID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	BuyerName         string          `gorm:"type:varchar(200)"`
	Items             LineItems       `gorm:"type:jsonb;not null"`
	Status            QuotationStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ValidUntil        *time.Time
	Notes             string     `gorm:"type:text"`
	SourceOrderID     *uuid.UUID `gorm:"type:uuid;index"`
	ConvertedOrderID  *uuid.UUID `gorm:"type:uuid"`
	ProformaInvoiceID *uuid.UUID `gorm:"type:uuid"`
	SentAt            *time.Time
	AcceptedAt        *time.Time
	ConvertedAt       *time.Time
}

// TableName returns the table name for GORM
func (Quotation) TableName() string {
	return "quotations"
}

// NewQuotation creates a new quotation in DRAFT status
func NewQuotation(number string, buyer Buyer, items LineItems, pricing PricingInput, validUntil *time.Time) (*Quotation, error) {
	if number == "" {
		return nil, shared.NewInvalidInputError("INVALID_QUOTATION_NUMBER", "Quotation number cannot be empty")
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

	q := &Quotation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuotationNumber:   number,
		BuyerID:           buyer.ID,
		BuyerName:         buyer.Name,
		Items:             items,
		Totals:            totals,
		Status:            QuotationStatusDraft,
		ValidUntil:        validUntil,
	}
	q.AddDomainEvent(NewDocumentCreatedEvent(q.Ref(), buyer.ID, totals.TotalAmount))
	return q, nil
}

// Ref returns a typed reference to the quotation
func (q *Quotation) Ref() SourceRef {
	return SourceRef{Type: DocumentQuotation, ID: q.ID, Number: q.QuotationNumber}
}

// DocumentStatus returns the status as a plain string
func (q *Quotation) DocumentStatus() string {
	return string(q.Status)
}

func (q *Quotation) transition(target QuotationStatus) error {
	if !q.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot change quotation from %s to %s", q.Status, target))
	}
	from := q.Status
	q.Status = target
	q.Touch()
	q.AddDomainEvent(NewDocumentStatusChangedEvent(q.Ref(), string(from), string(target)))
	return nil
}

// Send marks the quotation as sent to the buyer
func (q *Quotation) Send() error {
	if err := q.transition(QuotationStatusSent); err != nil {
		return err
	}
	now := time.Now()
	q.SentAt = &now
	return nil
}

// Accept records buyer acceptance. An offer past its validity date cannot be accepted.
func (q *Quotation) Accept(now time.Time) error {
	if q.Status == QuotationStatusSent && q.ValidUntil != nil && now.After(*q.ValidUntil) {
		return shared.NewInvalidStateError("QUOTATION_EXPIRED",
			fmt.Sprintf("Quotation %s expired on %s", q.QuotationNumber, q.ValidUntil.Format("2006-01-02")))
	}
	if err := q.transition(QuotationStatusAccepted); err != nil {
		return err
	}
	q.AcceptedAt = &now
	return nil
}

// Reject records buyer rejection
func (q *Quotation) Reject(reason string) error {
	if err := q.transition(QuotationStatusRejected); err != nil {
		return err
	}
	if reason != "" {
		q.Notes = reason
	}
	return nil
}

// Expire marks an unanswered quotation as expired
func (q *Quotation) Expire() error {
	return q.transition(QuotationStatusExpired)
}

// MarkConverted makes the quotation terminal with a back-reference to the order
func (q *Quotation) MarkConverted(orderID uuid.UUID) error {
	if err := q.transition(QuotationStatusConverted); err != nil {
		return err
	}
	now := time.Now()
	q.ConvertedOrderID = &orderID
	q.ConvertedAt = &now
	return nil
}

// LinkProformaInvoice records the PI raised from this quotation
func (q *Quotation) LinkProformaInvoice(piID uuid.UUID) error {
	if q.ProformaInvoiceID != nil {
		return shared.NewInvalidStateError("ALREADY_LINKED",
			fmt.Sprintf("Quotation %s already has a proforma invoice", q.QuotationNumber))
	}
	q.ProformaInvoiceID = &piID
	q.Touch()
	return nil
}
