package trade

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ShipmentStatus tracks a dispatch after it leaves the warehouse
type ShipmentStatus string

const (
	ShipmentStatusDispatched ShipmentStatus = "DISPATCHED"
	ShipmentStatusInTransit  ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered  ShipmentStatus = "DELIVERED"
)

// IsValid checks if the status is a valid ShipmentStatus
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusDispatched, ShipmentStatusInTransit, ShipmentStatusDelivered:
		return true
	}
	return false
}

// String returns the string representation of ShipmentStatus
func (s ShipmentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	switch s {
	case ShipmentStatusDispatched:
		return target == ShipmentStatusInTransit || target == ShipmentStatusDelivered
	case ShipmentStatusInTransit:
		return target == ShipmentStatusDelivered
	}
	return false
}

// DispatchItem is the shipped quantity of one source line
type DispatchItem struct {
	LineItemID  uuid.UUID `json:"line_item_id"`
	PartID      uuid.UUID `json:"part_id"`
	PartNumber  string    `json:"part_number"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
}

// DispatchItems is a slice of DispatchItem for JSON storage
type DispatchItems []DispatchItem

// Value implements driver.Valuer for JSONB storage
func (d DispatchItems) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB storage
func (d *DispatchItems) Scan(value interface{}) error {
	return scanJSON(value, d, "DispatchItems")
}

// TotalQuantity returns the number of units in the dispatch
func (d DispatchItems) TotalQuantity() int {
	total := 0
	for _, item := range d {
		total += item.Quantity
	}
	return total
}

// ShippingInfo carries carrier and address details for a dispatch
type ShippingInfo struct {
	Carrier         string `gorm:"type:varchar(100)"`
	TrackingNumber  string `gorm:"type:varchar(100)"`
	ShippingAddress string `gorm:"type:text"`
	ShippingNotes   string `gorm:"type:text"`
	ShippedAt       *time.Time
}

// Dispatch is a physical shipment of part of a source document
type Dispatch struct {
	shared.BaseAggregateRoot
	ShippingInfo
	DispatchNumber   string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	SourceType       DocumentType   `gorm:"type:varchar(30);not null;uniqueIndex:idx_dispatch_source_seq,priority:1"`
	SourceID         uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_dispatch_source_seq,priority:2"`
	SourceNumber     string         `gorm:"type:varchar(50)"`
	DispatchSequence int            `gorm:"not null;uniqueIndex:idx_dispatch_source_seq,priority:3"`
	Items            DispatchItems  `gorm:"type:jsonb;not null"`
	TotalQuantity    int            `gorm:"not null"`
	IsPartial        bool           `gorm:"not null;default:false"`
	Status           ShipmentStatus `gorm:"type:varchar(20);not null;default:'DISPATCHED'"`
	InvoiceID        *uuid.UUID     `gorm:"type:uuid"`
	CreatedBy        string         `gorm:"type:varchar(100)"`
	DeliveredAt      *time.Time
}

// TableName returns the table name for GORM
func (Dispatch) TableName() string {
	return "dispatches"
}

// NewDispatch creates a dispatch against a source. sequence is the ordinal
// among dispatches of the same source, starting at 1.
func NewDispatch(number string, source SourceRef, sequence int, items DispatchItems, shipping ShippingInfo) (*Dispatch, error) {
	if number == "" {
		return nil, shared.NewInvalidInputError("INVALID_DISPATCH_NUMBER", "Dispatch number cannot be empty")
	}
	if !source.Type.IsDispatchSource() {
		return nil, shared.NewInvalidInputError("INVALID_SOURCE",
			fmt.Sprintf("Dispatches cannot be raised against a %s", source.Type.Label()))
	}
	if sequence < 1 {
		return nil, shared.NewInvalidInputError("INVALID_SEQUENCE", "Dispatch sequence must start at 1")
	}
	if len(items) == 0 {
		return nil, shared.NewInvalidInputError("EMPTY_DISPATCH", "At least one item is required to create a dispatch")
	}
	if shipping.ShippedAt == nil {
		now := time.Now()
		shipping.ShippedAt = &now
	}
	shipping.Carrier = strings.TrimSpace(shipping.Carrier)
	shipping.TrackingNumber = strings.TrimSpace(shipping.TrackingNumber)

	d := &Dispatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ShippingInfo:      shipping,
		DispatchNumber:    number,
		SourceType:        source.Type,
		SourceID:          source.ID,
		SourceNumber:      source.Number,
		DispatchSequence:  sequence,
		Items:             items,
		TotalQuantity:     items.TotalQuantity(),
		Status:            ShipmentStatusDispatched,
	}
	d.AddDomainEvent(NewDispatchCreatedEvent(d))
	return d, nil
}

// Ref returns a typed reference to the dispatch
func (d *Dispatch) Ref() SourceRef {
	return SourceRef{Type: DocumentDispatch, ID: d.ID, Number: d.DispatchNumber}
}

// Source returns the reference to the document the dispatch was raised against
func (d *Dispatch) Source() SourceRef {
	return SourceRef{Type: d.SourceType, ID: d.SourceID, Number: d.SourceNumber}
}

// UpdateTracking changes status and tracking metadata. Items and quantities
// are never touched after creation.
func (d *Dispatch) UpdateTracking(status ShipmentStatus, carrier, trackingNumber string) error {
	if status != "" && status != d.Status {
		if !status.IsValid() {
			return shared.NewInvalidInputError("INVALID_STATUS", fmt.Sprintf("Unknown shipment status: %s", status))
		}
		if !d.Status.CanTransitionTo(status) {
			return shared.NewInvalidStateError("INVALID_STATE",
				fmt.Sprintf("Cannot change dispatch from %s to %s", d.Status, status))
		}
		from := d.Status
		d.Status = status
		if status == ShipmentStatusDelivered {
			now := time.Now()
			d.DeliveredAt = &now
		}
		d.AddDomainEvent(NewDocumentStatusChangedEvent(d.Ref(), string(from), string(status)))
	}
	if carrier = strings.TrimSpace(carrier); carrier != "" {
		d.Carrier = carrier
	}
	if trackingNumber = strings.TrimSpace(trackingNumber); trackingNumber != "" {
		d.TrackingNumber = trackingNumber
	}
	d.Touch()
	return nil
}

// LinkInvoice records the invoice raised for this dispatch
func (d *Dispatch) LinkInvoice(invoiceID uuid.UUID) error {
	if d.InvoiceID != nil {
		return shared.NewInvalidStateError("ALREADY_INVOICED",
			fmt.Sprintf("Dispatch %s has already been invoiced", d.DispatchNumber))
	}
	d.InvoiceID = &invoiceID
	d.Touch()
	return nil
}

// IsInvoiced reports whether an invoice was generated for the dispatch
func (d *Dispatch) IsInvoiced() bool {
	return d.InvoiceID != nil
}

// CanBeRemoved checks the dispatch may be deleted by the repair path
func (d *Dispatch) CanBeRemoved() error {
	if d.IsInvoiced() {
		return shared.NewInvalidStateError("DISPATCH_INVOICED",
			fmt.Sprintf("Dispatch %s has an invoice and cannot be removed", d.DispatchNumber))
	}
	if d.Status == ShipmentStatusDelivered {
		return shared.NewInvalidStateError("DISPATCH_DELIVERED",
			fmt.Sprintf("Dispatch %s has been delivered and cannot be removed", d.DispatchNumber))
	}
	return nil
}

// LineItems returns the dispatch items as document lines priced from the
// source. Lines missing from the source are skipped.
func (d *Dispatch) LineItems(source LineItems) LineItems {
	out := make(LineItems, 0, len(d.Items))
	for _, di := range d.Items {
		src, ok := source.Find(di.LineItemID)
		if !ok {
			continue
		}
		src.Quantity = di.Quantity
		src.Recalculate()
		out = append(out, src)
	}
	return out
}
