package trade

import (
	"fmt"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderStatus represents the status of a buyer order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusQuoted     OrderStatus = "QUOTED"
	OrderStatusOpen       OrderStatus = "OPEN"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusDispatched OrderStatus = "DISPATCHED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusConverted  OrderStatus = "CONVERTED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusQuoted, OrderStatusOpen, OrderStatusProcessing,
		OrderStatusDispatched, OrderStatusDelivered, OrderStatusCancelled, OrderStatusConverted:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusConverted
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusQuoted || target == OrderStatusOpen || target == OrderStatusProcessing ||
			target == OrderStatusCancelled || target == OrderStatusConverted
	case OrderStatusQuoted:
		return target == OrderStatusOpen || target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusOpen:
		return target == OrderStatusProcessing || target == OrderStatusDispatched || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusDispatched || target == OrderStatusCancelled
	case OrderStatusDispatched:
		// PROCESSING only through reconciliation after a dispatch is removed
		return target == OrderStatusDelivered || target == OrderStatusProcessing
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusConverted:
		return false // Terminal states
	}
	return false
}

// Order is a buyer's order for parts
type Order struct {
	shared.BaseAggregateRoot
	Totals
	FulfillmentState
	Ledger
	OrderNumber          string      `gorm:"type:varchar(50);not null;uniqueIndex"`
	PONumber             string      `gorm:"column:po_number;type:varchar(50);not null;uniqueIndex"`
	BuyerID              uuid.UUID   `gorm:"type:uuid;not null;index"`
	BuyerName            string      `gorm:"type:varchar(200)"`
	Items                LineItems   `gorm:"type:jsonb;not null"`
	Status               OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Notes                string      `gorm:"type:text"`
	SourceQuotationID    *uuid.UUID  `gorm:"type:uuid;index"`
	ConvertedQuotationID *uuid.UUID  `gorm:"type:uuid"`
	ProformaInvoiceID    *uuid.UUID  `gorm:"type:uuid"`
	InvoiceID            *uuid.UUID  `gorm:"type:uuid"`
	DispatchedAt         *time.Time
	DeliveredAt          *time.Time
	CancelledAt          *time.Time
	CancelReason         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new order. Orders placed by a buyer start PENDING;
// orders raised from an accepted quotation start OPEN.
func NewOrder(orderNumber, poNumber string, buyer Buyer, items LineItems, pricing PricingInput, status OrderStatus) (*Order, error) {
	if orderNumber == "" || poNumber == "" {
		return nil, shared.NewInvalidInputError("INVALID_ORDER_NUMBER", "Order number and PO number cannot be empty")
	}
	if status != OrderStatusPending && status != OrderStatusOpen {
		return nil, shared.NewInvalidInputError("INVALID_STATUS", fmt.Sprintf("Orders cannot be created in %s status", status))
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

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Totals:            totals,
		Ledger:            NewLedger(totals.TotalAmount),
		OrderNumber:       orderNumber,
		PONumber:          poNumber,
		BuyerID:           buyer.ID,
		BuyerName:         buyer.Name,
		Items:             items,
		Status:            status,
	}
	o.FulfillmentState.ApplyReconciliation(Reconcile(o.Ref(), items, nil))
	o.AddDomainEvent(NewDocumentCreatedEvent(o.Ref(), buyer.ID, totals.TotalAmount))
	return o, nil
}

// Ref returns a typed reference to the order
func (o *Order) Ref() SourceRef {
	return SourceRef{Type: DocumentOrder, ID: o.ID, Number: o.OrderNumber}
}

// DocumentStatus returns the status as a plain string
func (o *Order) DocumentStatus() string {
	return string(o.Status)
}

// LineItems returns the order lines
func (o *Order) LineItems() LineItems {
	return o.Items
}

// Fulfillment returns the derived quantity fields
func (o *Order) Fulfillment() FulfillmentState {
	return o.FulfillmentState
}

func (o *Order) transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot change order from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	o.Touch()
	o.AddDomainEvent(NewDocumentStatusChangedEvent(o.Ref(), string(from), string(target)))
	return nil
}

// MarkQuoted records that a quotation is being prepared for the order
func (o *Order) MarkQuoted() error {
	return o.transition(OrderStatusQuoted)
}

// Open confirms the order
func (o *Order) Open() error {
	return o.transition(OrderStatusOpen)
}

// StartProcessing moves the order into fulfillment
func (o *Order) StartProcessing() error {
	return o.transition(OrderStatusProcessing)
}

// MarkDelivered records delivery of a fully dispatched order
func (o *Order) MarkDelivered() error {
	if err := o.transition(OrderStatusDelivered); err != nil {
		return err
	}
	now := time.Now()
	o.DeliveredAt = &now
	return nil
}

// Cancel cancels the order. Orders with shipped goods cannot be cancelled.
func (o *Order) Cancel(reason string) error {
	if err := o.ensureNothingShipped("cancelled"); err != nil {
		return err
	}
	if err := o.transition(OrderStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = reason
	return nil
}

// ensureNothingShipped refuses to retire an order that has goods out the door
func (o *Order) ensureNothingShipped(action string) error {
	if o.DispatchedQuantity > 0 {
		return shared.NewInvalidStateError("ORDER_HAS_DISPATCHES",
			fmt.Sprintf("Order %s has dispatched goods and cannot be %s", o.OrderNumber, action))
	}
	return nil
}

// CanConvertToQuotation reports whether the order may still go back to a
// quotation
func (o *Order) CanConvertToQuotation() error {
	return o.ensureNothingShipped("converted to a quotation")
}

// MarkConverted makes the order terminal with a back-reference to the quotation
func (o *Order) MarkConverted(quotationID uuid.UUID) error {
	if err := o.CanConvertToQuotation(); err != nil {
		return err
	}
	if err := o.transition(OrderStatusConverted); err != nil {
		return err
	}
	o.ConvertedQuotationID = &quotationID
	return nil
}

// LinkProformaInvoice records the PI raised from this order
func (o *Order) LinkProformaInvoice(piID uuid.UUID) error {
	if o.ProformaInvoiceID != nil {
		return shared.NewInvalidStateError("ALREADY_LINKED",
			fmt.Sprintf("Order %s already has a proforma invoice", o.OrderNumber))
	}
	o.ProformaInvoiceID = &piID
	o.Touch()
	return nil
}

// LinkInvoice records the invoice raised for the whole order
func (o *Order) LinkInvoice(invoiceID uuid.UUID) error {
	if o.InvoiceID != nil {
		return shared.NewInvalidStateError("ALREADY_INVOICED",
			fmt.Sprintf("Order %s has already been invoiced", o.OrderNumber))
	}
	o.InvoiceID = &invoiceID
	o.Touch()
	return nil
}

// CanDispatch checks the order status allows a new dispatch
func (o *Order) CanDispatch() error {
	if o.Status == OrderStatusCancelled {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Order %s is cancelled and cannot be dispatched", o.OrderNumber))
	}
	return ConversionRules[ConversionKey{From: DocumentOrder, To: DocumentDispatch}].Check(string(o.Status))
}

// ApplyReconciliation stores the recomputed quantities. A fully dispatched
// OPEN or PROCESSING order becomes DISPATCHED; a DISPATCHED order that is no
// longer fully dispatched goes back to PROCESSING.
func (o *Order) ApplyReconciliation(r ReconcileResult) error {
	o.FulfillmentState.ApplyReconciliation(r)
	o.Touch()

	switch {
	case r.Dispatched && (o.Status == OrderStatusOpen || o.Status == OrderStatusProcessing):
		if err := o.transition(OrderStatusDispatched); err != nil {
			return err
		}
		now := time.Now()
		o.DispatchedAt = &now
	case !r.Dispatched && o.Status == OrderStatusDispatched:
		if err := o.transition(OrderStatusProcessing); err != nil {
			return err
		}
		o.DispatchedAt = nil
	}
	return nil
}

// RecordPayment applies a payment to the order ledger
func (o *Order) RecordPayment(in PaymentInput) (PaymentEntry, error) {
	if o.Status == OrderStatusCancelled {
		return PaymentEntry{}, shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Order %s is cancelled and cannot accept payments", o.OrderNumber))
	}
	entry, err := o.Ledger.ApplyPayment(o.TotalAmount, in)
	if err != nil {
		return PaymentEntry{}, err
	}
	o.Touch()
	o.AddDomainEvent(NewPaymentRecordedEvent(o.Ref(), entry, o.LedgerSummary()))
	return entry, nil
}

// AdjustPayment posts a correction to the order ledger
func (o *Order) AdjustPayment(in PaymentInput) (PaymentEntry, error) {
	entry, err := o.Ledger.ApplyAdjustment(o.TotalAmount, in)
	if err != nil {
		return PaymentEntry{}, err
	}
	o.Touch()
	o.AddDomainEvent(NewPaymentRecordedEvent(o.Ref(), entry, o.LedgerSummary()))
	return entry, nil
}

// LedgerSummary returns the payment view of the order
func (o *Order) LedgerSummary() LedgerSummary {
	return o.Ledger.Summary(o.TotalAmount)
}
