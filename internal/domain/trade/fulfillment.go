package trade

import (
	"fmt"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// DispatchStatus summarizes how much of a source document has shipped
type DispatchStatus string

const (
	DispatchStatusNone    DispatchStatus = "NONE"
	DispatchStatusPartial DispatchStatus = "PARTIAL"
	DispatchStatusFull    DispatchStatus = "FULL"
)

// IsValid checks if the status is a valid DispatchStatus
func (s DispatchStatus) IsValid() bool {
	switch s {
	case DispatchStatusNone, DispatchStatusPartial, DispatchStatusFull:
		return true
	}
	return false
}

// String returns the string representation of DispatchStatus
func (s DispatchStatus) String() string {
	return string(s)
}

// FulfillmentState holds the derived quantity fields of a dispatch source.
// The values are only ever written from a ReconcileResult.
type FulfillmentState struct {
	TotalQuantity      int            `gorm:"not null;default:0"`
	DispatchedQuantity int            `gorm:"not null;default:0"`
	PendingQuantity    int            `gorm:"not null;default:0"`
	DispatchStatus     DispatchStatus `gorm:"type:varchar(20);not null;default:'NONE'"`
	Dispatched         bool           `gorm:"not null;default:false"`
	DispatchCount      int            `gorm:"not null;default:0"`
}

// ApplyReconciliation copies a reconcile result into the state
func (f *FulfillmentState) ApplyReconciliation(r ReconcileResult) {
	f.TotalQuantity = r.TotalQuantity
	f.DispatchedQuantity = r.DispatchedQuantity
	f.PendingQuantity = r.PendingQuantity
	f.DispatchStatus = r.DispatchStatus
	f.Dispatched = r.Dispatched
	f.DispatchCount = r.DispatchCount
}

// ReconcileResult is the recomputed quantity picture of a source document
type ReconcileResult struct {
	TotalQuantity      int
	DispatchedQuantity int
	PendingQuantity    int
	DispatchStatus     DispatchStatus
	Dispatched         bool
	DispatchCount      int
	// DispatchedByLine maps line item id to quantity already shipped
	DispatchedByLine map[uuid.UUID]int
	// LastSequence is the highest dispatch_sequence seen
	LastSequence int
}

// Overshipped reports whether more was dispatched than ordered
func (r ReconcileResult) Overshipped() bool {
	return r.DispatchedQuantity > r.TotalQuantity
}

// RemainingFor returns how many units of a line can still be dispatched
func (r ReconcileResult) RemainingFor(item LineItem) int {
	remaining := item.Quantity - r.DispatchedByLine[item.ID]
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reconcile recomputes the fulfillment fields of a source from its own items
// and its dispatch records. Dispatches that belong to another source are
// ignored, so callers may pass an unfiltered set.
func Reconcile(ref SourceRef, items LineItems, dispatches []Dispatch) ReconcileResult {
	result := ReconcileResult{
		TotalQuantity:    items.TotalQuantity(),
		DispatchedByLine: make(map[uuid.UUID]int),
	}

	for _, d := range dispatches {
		if d.SourceID != ref.ID || d.SourceType != ref.Type {
			continue
		}
		result.DispatchCount++
		result.DispatchedQuantity += d.TotalQuantity
		if d.DispatchSequence > result.LastSequence {
			result.LastSequence = d.DispatchSequence
		}
		for _, line := range d.Items {
			result.DispatchedByLine[line.LineItemID] += line.Quantity
		}
	}

	result.PendingQuantity = result.TotalQuantity - result.DispatchedQuantity
	if result.PendingQuantity < 0 {
		result.PendingQuantity = 0
	}

	switch {
	case result.DispatchedQuantity == 0:
		result.DispatchStatus = DispatchStatusNone
	case result.TotalQuantity > 0 && result.DispatchedQuantity >= result.TotalQuantity:
		result.DispatchStatus = DispatchStatusFull
	default:
		result.DispatchStatus = DispatchStatusPartial
	}
	result.Dispatched = result.DispatchStatus == DispatchStatusFull

	return result
}

// DispatchRequestLine asks for a quantity of one source line
type DispatchRequestLine struct {
	LineItemID uuid.UUID
	Quantity   int
}

// PlanDispatch validates requested quantities against the current state of a
// source and returns the dispatch lines. Every requested line must exist and
// must not push its shipped quantity above its ordered quantity.
func PlanDispatch(items LineItems, current ReconcileResult, request []DispatchRequestLine) (DispatchItems, error) {
	if len(request) == 0 {
		return nil, shared.NewInvalidInputError("EMPTY_DISPATCH", "At least one item is required to create a dispatch")
	}

	requested := make(map[uuid.UUID]int, len(request))
	order := make([]uuid.UUID, 0, len(request))
	for _, line := range request {
		if line.Quantity <= 0 {
			return nil, shared.NewInvalidInputError("INVALID_QUANTITY", "Dispatch quantity must be positive")
		}
		if _, ok := requested[line.LineItemID]; !ok {
			order = append(order, line.LineItemID)
		}
		requested[line.LineItemID] += line.Quantity
	}

	out := make(DispatchItems, 0, len(order))
	for _, id := range order {
		item, ok := items.Find(id)
		if !ok {
			return nil, shared.NewInvalidInputError("UNKNOWN_LINE_ITEM", fmt.Sprintf("Line item %s does not belong to this document", id))
		}
		qty := requested[id]
		if remaining := current.RemainingFor(item); qty > remaining {
			return nil, shared.NewInvalidInputError("QUANTITY_EXCEEDED",
				fmt.Sprintf("Cannot dispatch %d of part %s, only %d remaining", qty, item.PartNumber, remaining))
		}
		out = append(out, DispatchItem{
			LineItemID:  item.ID,
			PartID:      item.PartID,
			PartNumber:  item.PartNumber,
			Description: item.Description,
			Quantity:    qty,
		})
	}
	return out, nil
}

// DispatchSource is implemented by documents that dispatches are raised against
type DispatchSource interface {
	Ref() SourceRef
	LineItems() LineItems
	Fulfillment() FulfillmentState
	// CanDispatch checks the document status allows a new dispatch
	CanDispatch() error
	// ApplyReconciliation stores a reconcile result and applies any status
	// change it implies
	ApplyReconciliation(r ReconcileResult) error
}
