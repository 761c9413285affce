package trade

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecordStatus represents the verification state of submitted payment evidence
type PaymentRecordStatus string

const (
	PaymentRecordStatusPending  PaymentRecordStatus = "PENDING"
	PaymentRecordStatusVerified PaymentRecordStatus = "VERIFIED"
	PaymentRecordStatusRejected PaymentRecordStatus = "REJECTED"
)

// IsValid checks if the status is a valid PaymentRecordStatus
func (s PaymentRecordStatus) IsValid() bool {
	switch s {
	case PaymentRecordStatusPending, PaymentRecordStatusVerified, PaymentRecordStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of PaymentRecordStatus
func (s PaymentRecordStatus) String() string {
	return string(s)
}

// PaymentRecordEdit is one entry of a verified record's edit history
type PaymentRecordEdit struct {
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	EditedBy       string          `json:"edited_by"`
	EditedAt       time.Time       `json:"edited_at"`
	Reason         string          `json:"reason,omitempty"`
}

// PaymentRecordEdits is a slice of PaymentRecordEdit for JSON storage
type PaymentRecordEdits []PaymentRecordEdit

// Value implements driver.Valuer for JSONB storage
func (e PaymentRecordEdits) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSONB storage
func (e *PaymentRecordEdits) Scan(value interface{}) error {
	return scanJSON(value, e, "PaymentRecordEdits")
}

// PaymentRecord is buyer or admin submitted payment evidence against a PI.
// It only reaches the PI ledger once verified.
type PaymentRecord struct {
	shared.BaseAggregateRoot
	RecordNumber      string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProformaInvoiceID uuid.UUID           `gorm:"type:uuid;not null;index"`
	PINumber          string              `gorm:"column:pi_number;type:varchar(50)"`
	BuyerID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	RecordedAmount    decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Currency          string              `gorm:"type:varchar(3);not null;default:'USD'"`
	Method            string              `gorm:"type:varchar(50)"`
	ProofRef          string              `gorm:"type:varchar(500)"`
	Reference         string              `gorm:"type:varchar(100)"`
	Status            PaymentRecordStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	SubmittedBy       string              `gorm:"type:varchar(100)"`
	ReviewedBy        string              `gorm:"type:varchar(100)"`
	Notes             string              `gorm:"type:text"`
	AdminNotes        string              `gorm:"type:text"`
	EditHistory       PaymentRecordEdits  `gorm:"type:jsonb"`
	ReviewedAt        *time.Time
}

// TableName returns the table name for GORM
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// PaymentRecordInput describes a new payment record submission
type PaymentRecordInput struct {
	Amount      decimal.Decimal
	Currency    string
	Method      string
	ProofRef    string
	Reference   string
	Notes       string
	SubmittedBy string
}

// NewPaymentRecord creates a PENDING payment record against a PI
func NewPaymentRecord(number string, pi *ProformaInvoice, in PaymentRecordInput) (*PaymentRecord, error) {
	if number == "" {
		return nil, shared.NewInvalidInputError("INVALID_RECORD_NUMBER", "Payment record number cannot be empty")
	}
	if pi == nil {
		return nil, shared.NewInvalidInputError("INVALID_PROFORMA_INVOICE", "Proforma invoice is required")
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewInvalidInputError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if err := pi.AcceptsPayments(); err != nil {
		return nil, err
	}
	code := in.Currency
	if code == "" {
		code = pi.Currency
	}
	cur, err := valueobject.ParseCurrency(code)
	if err != nil {
		return nil, shared.NewInvalidInputError("INVALID_CURRENCY", err.Error())
	}

	r := &PaymentRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RecordNumber:      number,
		ProformaInvoiceID: pi.ID,
		PINumber:          pi.PINumber,
		BuyerID:           pi.BuyerID,
		Amount:            in.Amount,
		RecordedAmount:    decimal.Zero,
		Currency:          cur.String(),
		Method:            strings.TrimSpace(in.Method),
		ProofRef:          in.ProofRef,
		Reference:         in.Reference,
		Status:            PaymentRecordStatusPending,
		SubmittedBy:       in.SubmittedBy,
		Notes:             in.Notes,
		EditHistory:       PaymentRecordEdits{},
	}
	r.AddDomainEvent(NewPaymentRecordSubmittedEvent(r))
	return r, nil
}

func (r *PaymentRecord) requirePending(action string) error {
	if r.Status != PaymentRecordStatusPending {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Only PENDING payment records can be %s, record %s is %s", action, r.RecordNumber, r.Status))
	}
	return nil
}

// Verify marks the record VERIFIED. recordedAmount defaults to the submitted
// amount when zero. The returned input is what must be applied to the PI ledger.
func (r *PaymentRecord) Verify(recordedAmount decimal.Decimal, notes, reviewer string, now time.Time) (PaymentInput, error) {
	if err := r.requirePending("verified"); err != nil {
		return PaymentInput{}, err
	}
	if recordedAmount.IsZero() {
		recordedAmount = r.Amount
	}
	if !recordedAmount.IsPositive() {
		return PaymentInput{}, shared.NewInvalidInputError("INVALID_AMOUNT", "Recorded amount must be positive")
	}

	r.Status = PaymentRecordStatusVerified
	r.RecordedAmount = recordedAmount
	r.AdminNotes = notes
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.Touch()
	r.AddDomainEvent(NewPaymentRecordVerifiedEvent(r))

	id := r.ID
	return PaymentInput{
		Amount:          recordedAmount,
		Method:          r.Method,
		Notes:           notes,
		RecordedBy:      reviewer,
		PaymentRecordID: &id,
	}, nil
}

// Reject marks the record REJECTED. The PI ledger is never touched.
func (r *PaymentRecord) Reject(notes, reviewer string, now time.Time) error {
	if err := r.requirePending("rejected"); err != nil {
		return err
	}
	r.Status = PaymentRecordStatusRejected
	r.AdminNotes = notes
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.Touch()
	r.AddDomainEvent(NewPaymentRecordRejectedEvent(r))
	return nil
}

// Edit changes the amount of a record. PENDING records are updated in place
// and return a zero delta. VERIFIED records keep an edit history entry and
// return the delta that must be posted to the PI ledger.
func (r *PaymentRecord) Edit(newAmount decimal.Decimal, editor, reason string, now time.Time) (decimal.Decimal, error) {
	if !newAmount.IsPositive() {
		return decimal.Zero, shared.NewInvalidInputError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	switch r.Status {
	case PaymentRecordStatusPending:
		r.Amount = newAmount
		r.Touch()
		return decimal.Zero, nil
	case PaymentRecordStatusVerified:
		previous := r.RecordedAmount
		if previous.Equal(newAmount) {
			return decimal.Zero, shared.NewInvalidInputError("UNCHANGED_AMOUNT", "New amount equals the recorded amount")
		}
		r.EditHistory = append(r.EditHistory, PaymentRecordEdit{
			PreviousAmount: previous,
			NewAmount:      newAmount,
			EditedBy:       editor,
			EditedAt:       now,
			Reason:         reason,
		})
		r.RecordedAmount = newAmount
		r.Touch()
		r.AddDomainEvent(NewPaymentRecordEditedEvent(r, previous, newAmount))
		return newAmount.Sub(previous), nil
	}
	return decimal.Zero, shared.NewInvalidStateError("INVALID_STATE",
		fmt.Sprintf("Payment record %s is %s and cannot be edited", r.RecordNumber, r.Status))
}
