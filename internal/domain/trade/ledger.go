package trade

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents how much of a document has been paid
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentStatusFor derives the payment status from received and total amounts
func PaymentStatusFor(received, total decimal.Decimal) PaymentStatus {
	switch {
	case received.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case received.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// PaymentKind distinguishes regular payments from corrections
type PaymentKind string

const (
	PaymentKindPayment    PaymentKind = "PAYMENT"
	PaymentKindAdjustment PaymentKind = "ADJUSTMENT"
)

// PaymentEntry is one line of a document's payment history
type PaymentEntry struct {
	ID              uuid.UUID       `json:"id"`
	Kind            PaymentKind     `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RecordedBy      string          `json:"recorded_by,omitempty"`
	PaymentRecordID *uuid.UUID      `json:"payment_record_id,omitempty"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

// PaymentEntries is a slice of PaymentEntry for JSON storage
type PaymentEntries []PaymentEntry

// Value implements driver.Valuer for JSONB storage
func (p PaymentEntries) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage
func (p *PaymentEntries) Scan(value interface{}) error {
	return scanJSON(value, p, "PaymentEntries")
}

// PaymentInput describes a payment being applied to a ledger
type PaymentInput struct {
	Amount          decimal.Decimal
	Method          string
	Notes           string
	RecordedBy      string
	PaymentRecordID *uuid.UUID
}

// LedgerSummary is the caller-facing view of a ledger
type LedgerSummary struct {
	TotalAmount     decimal.Decimal
	PaymentReceived decimal.Decimal
	BalanceDue      decimal.Decimal
	PaymentStatus   PaymentStatus
}

// Ledger holds the payment-tracking fields of a billable document
type Ledger struct {
	PaymentReceived decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BalanceDue      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	Payments        PaymentEntries  `gorm:"type:jsonb"`
}

// NewLedger creates an empty ledger for a document total
func NewLedger(total decimal.Decimal) Ledger {
	l := Ledger{PaymentReceived: decimal.Zero, Payments: PaymentEntries{}}
	l.RecomputeBalance(total)
	return l
}

// RecomputeBalance derives balance and status. The raw balance is kept even
// when negative (overpayment).
func (l *Ledger) RecomputeBalance(total decimal.Decimal) {
	l.BalanceDue = total.Sub(l.PaymentReceived)
	l.PaymentStatus = PaymentStatusFor(l.PaymentReceived, total)
}

// ApplyPayment appends a payment and recomputes the balance
func (l *Ledger) ApplyPayment(total decimal.Decimal, in PaymentInput) (PaymentEntry, error) {
	if !in.Amount.IsPositive() {
		return PaymentEntry{}, shared.NewInvalidInputError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	entry := PaymentEntry{
		ID:              uuid.New(),
		Kind:            PaymentKindPayment,
		Amount:          in.Amount,
		Method:          strings.TrimSpace(in.Method),
		Notes:           in.Notes,
		RecordedBy:      in.RecordedBy,
		PaymentRecordID: in.PaymentRecordID,
		RecordedAt:      time.Now(),
	}
	l.Payments = append(l.Payments, entry)
	l.PaymentReceived = l.PaymentReceived.Add(in.Amount)
	l.RecomputeBalance(total)
	return entry, nil
}

// ApplyAdjustment posts a signed correction, e.g. after a verified payment
// record was edited. Received amount never goes below zero.
func (l *Ledger) ApplyAdjustment(total decimal.Decimal, in PaymentInput) (PaymentEntry, error) {
	if in.Amount.IsZero() {
		return PaymentEntry{}, shared.NewInvalidInputError("INVALID_AMOUNT", "Adjustment amount cannot be zero")
	}
	if l.PaymentReceived.Add(in.Amount).IsNegative() {
		return PaymentEntry{}, shared.NewInvalidInputError("INVALID_AMOUNT", "Adjustment would make the received amount negative")
	}
	entry := PaymentEntry{
		ID:              uuid.New(),
		Kind:            PaymentKindAdjustment,
		Amount:          in.Amount,
		Method:          in.Method,
		Notes:           in.Notes,
		RecordedBy:      in.RecordedBy,
		PaymentRecordID: in.PaymentRecordID,
		RecordedAt:      time.Now(),
	}
	l.Payments = append(l.Payments, entry)
	l.PaymentReceived = l.PaymentReceived.Add(in.Amount)
	l.RecomputeBalance(total)
	return entry, nil
}

// Summary returns the caller-facing ledger view
func (l Ledger) Summary(total decimal.Decimal) LedgerSummary {
	return LedgerSummary{
		TotalAmount:     total,
		PaymentReceived: l.PaymentReceived,
		BalanceDue:      l.BalanceDue,
		PaymentStatus:   l.PaymentStatus,
	}
}

// Payable is implemented by documents that carry a payment ledger
type Payable interface {
	Ref() SourceRef
	// RecordPayment checks the document accepts payments and applies one
	RecordPayment(in PaymentInput) (PaymentEntry, error)
	// AdjustPayment posts a signed correction to the ledger
	AdjustPayment(in PaymentInput) (PaymentEntry, error)
	LedgerSummary() LedgerSummary
}
