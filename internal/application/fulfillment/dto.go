package fulfillment

import (
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Document DTOs ====================

// LineItemInput represents a part line in a create request
type LineItemInput struct {
	PartID      uuid.UUID       `json:"part_id" binding:"required"`
	PartNumber  string          `json:"part_number" binding:"required,min=1,max=100"`
	Description string          `json:"description" binding:"max=500"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"decimal_gte0"`
}

// PricingRequest carries document-level pricing terms. Nil values fall back
// to configured defaults.
type PricingRequest struct {
	TaxRate         *decimal.Decimal `json:"tax_rate"`
	ShippingCharges *decimal.Decimal `json:"shipping_charges"`
	Currency        string           `json:"currency" binding:"omitempty,iso4217"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate"`
}

// CreateQuotationRequest represents a request to create a quotation
type CreateQuotationRequest struct {
	PricingRequest
	BuyerID    uuid.UUID       `json:"buyer_id" binding:"required"`
	BuyerName  string          `json:"buyer_name" binding:"max=200"`
	Items      []LineItemInput `json:"items" binding:"required,min=1,dive"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes"`
}

// CreateOrderRequest represents a request to create a buyer order
type CreateOrderRequest struct {
	PricingRequest
	BuyerID   uuid.UUID       `json:"buyer_id" binding:"required"`
	BuyerName string          `json:"buyer_name" binding:"max=200"`
	Items     []LineItemInput `json:"items" binding:"required,min=1,dive"`
	Notes     string          `json:"notes"`
}

// CreateProformaInvoiceRequest represents a request to create a standalone proforma invoice
type CreateProformaInvoiceRequest struct {
	PricingRequest
	BuyerID    uuid.UUID       `json:"buyer_id" binding:"required"`
	BuyerName  string          `json:"buyer_name" binding:"max=200"`
	Items      []LineItemInput `json:"items" binding:"required,min=1,dive"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes"`
}

// ChangeStatusRequest moves a document to another status of its lifecycle
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// DocumentListFilter represents list filtering options
type DocumentListFilter struct {
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string     `form:"search"`
	Status   string     `form:"status"`
	BuyerID  *uuid.UUID `form:"buyer_id"`
}

// LineItemResponse represents a part line in API responses
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	PartID      uuid.UUID       `json:"part_id"`
	PartNumber  string          `json:"part_number"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// TotalsResponse represents document totals
type TotalsResponse struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
}

// FulfillmentResponse represents the derived dispatch quantities of a source
type FulfillmentResponse struct {
	TotalQuantity      int    `json:"total_quantity"`
	DispatchedQuantity int    `json:"dispatched_quantity"`
	PendingQuantity    int    `json:"pending_quantity"`
	DispatchStatus     string `json:"dispatch_status"`
	Dispatched         bool   `json:"dispatched"`
	DispatchCount      int    `json:"dispatch_count"`
}

// PaymentEntryResponse represents one line of a payment history
type PaymentEntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	Kind            string          `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RecordedBy      string          `json:"recorded_by,omitempty"`
	PaymentRecordID *uuid.UUID      `json:"payment_record_id,omitempty"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

// LedgerResponse represents the payment state of a billable document
type LedgerResponse struct {
	PaymentReceived decimal.Decimal        `json:"payment_received"`
	BalanceDue      decimal.Decimal        `json:"balance_due"`
	PaymentStatus   string                 `json:"payment_status"`
	Payments        []PaymentEntryResponse `json:"payments"`
}

// QuotationResponse represents a quotation in API responses
type QuotationResponse struct {
	ID                uuid.UUID          `json:"id"`
	QuotationNumber   string             `json:"quotation_number"`
	BuyerID           uuid.UUID          `json:"buyer_id"`
	BuyerName         string             `json:"buyer_name"`
	Items             []LineItemResponse `json:"items"`
	Totals            TotalsResponse     `json:"totals"`
	Status            string             `json:"status"`
	ValidUntil        *time.Time         `json:"valid_until,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	SourceOrderID     *uuid.UUID         `json:"source_order_id,omitempty"`
	ConvertedOrderID  *uuid.UUID         `json:"converted_order_id,omitempty"`
	ProformaInvoiceID *uuid.UUID         `json:"proforma_invoice_id,omitempty"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	PONumber             string              `json:"po_number"`
	BuyerID              uuid.UUID           `json:"buyer_id"`
	BuyerName            string              `json:"buyer_name"`
	Items                []LineItemResponse  `json:"items"`
	Totals               TotalsResponse      `json:"totals"`
	Fulfillment          FulfillmentResponse `json:"fulfillment"`
	Ledger               LedgerResponse      `json:"ledger"`
	Status               string              `json:"status"`
	Notes                string              `json:"notes,omitempty"`
	SourceQuotationID    *uuid.UUID          `json:"source_quotation_id,omitempty"`
	ConvertedQuotationID *uuid.UUID          `json:"converted_quotation_id,omitempty"`
	ProformaInvoiceID    *uuid.UUID          `json:"proforma_invoice_id,omitempty"`
	InvoiceID            *uuid.UUID          `json:"invoice_id,omitempty"`
	DispatchedAt         *time.Time          `json:"dispatched_at,omitempty"`
	CancelReason         string              `json:"cancel_reason,omitempty"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ProformaInvoiceResponse represents a proforma invoice in API responses
type ProformaInvoiceResponse struct {
	ID                 uuid.UUID           `json:"id"`
	PINumber           string              `json:"pi_number"`
	BuyerID            uuid.UUID           `json:"buyer_id"`
	BuyerName          string              `json:"buyer_name"`
	Items              []LineItemResponse  `json:"items"`
	Totals             TotalsResponse      `json:"totals"`
	Fulfillment        FulfillmentResponse `json:"fulfillment"`
	Ledger             LedgerResponse      `json:"ledger"`
	AllocationComplete bool                `json:"allocation_complete"`
	Status             string              `json:"status"`
	SourceType         string              `json:"source_type,omitempty"`
	SourceID           *uuid.UUID          `json:"source_id,omitempty"`
	SourceNumber       string              `json:"source_number,omitempty"`
	InvoiceID          *uuid.UUID          `json:"invoice_id,omitempty"`
	ValidUntil         *time.Time          `json:"valid_until,omitempty"`
	Notes              string              `json:"notes,omitempty"`
	Version            int                 `json:"version"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	SourceType    string             `json:"source_type"`
	SourceID      uuid.UUID          `json:"source_id"`
	SourceNumber  string             `json:"source_number"`
	DispatchID    *uuid.UUID         `json:"dispatch_id,omitempty"`
	BuyerID       uuid.UUID          `json:"buyer_id"`
	BuyerName     string             `json:"buyer_name"`
	Items         []LineItemResponse `json:"items"`
	Totals        TotalsResponse     `json:"totals"`
	Ledger        LedgerResponse     `json:"ledger"`
	Status        string             `json:"status"`
	DueDate       *time.Time         `json:"due_date,omitempty"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ==================== Dispatch DTOs ====================

// DispatchLineInput asks for a quantity of one source line
type DispatchLineInput struct {
	LineItemID uuid.UUID `json:"line_item_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,min=1"`
}

// ShippingInput carries carrier details for a new dispatch
type ShippingInput struct {
	Carrier         string     `json:"carrier" binding:"max=100"`
	TrackingNumber  string     `json:"tracking_number" binding:"max=100"`
	ShippingAddress string     `json:"shipping_address"`
	Notes           string     `json:"notes"`
	ShippedAt       *time.Time `json:"shipped_at"`
}

// CreateDispatchRequest represents a request to dispatch part of a source document
type CreateDispatchRequest struct {
	SourceType trade.DocumentType  `json:"-"`
	SourceID   uuid.UUID           `json:"-"`
	Items      []DispatchLineInput `json:"items" binding:"required,min=1,dive"`
	Shipping   ShippingInput       `json:"shipping"`
	CreatedBy  string              `json:"-"`
}

// UpdateDispatchTrackingRequest changes the shipment status or tracking metadata
type UpdateDispatchTrackingRequest struct {
	DispatchID     uuid.UUID `json:"-"`
	Status         string    `json:"status" binding:"omitempty,oneof=DISPATCHED IN_TRANSIT DELIVERED"`
	Carrier        string    `json:"carrier" binding:"max=100"`
	TrackingNumber string    `json:"tracking_number" binding:"max=100"`
}

// DispatchItemResponse represents one dispatched line
type DispatchItemResponse struct {
	LineItemID  uuid.UUID `json:"line_item_id"`
	PartID      uuid.UUID `json:"part_id"`
	PartNumber  string    `json:"part_number"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
}

// DispatchResponse represents a dispatch in API responses
type DispatchResponse struct {
	ID               uuid.UUID              `json:"id"`
	DispatchNumber   string                 `json:"dispatch_number"`
	SourceType       string                 `json:"source_type"`
	SourceID         uuid.UUID              `json:"source_id"`
	SourceNumber     string                 `json:"source_number"`
	DispatchSequence int                    `json:"dispatch_sequence"`
	Items            []DispatchItemResponse `json:"items"`
	TotalQuantity    int                    `json:"total_quantity"`
	IsPartial        bool                   `json:"is_partial"`
	Status           string                 `json:"status"`
	Carrier          string                 `json:"carrier,omitempty"`
	TrackingNumber   string                 `json:"tracking_number,omitempty"`
	ShippingAddress  string                 `json:"shipping_address,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	ShippedAt        *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time             `json:"delivered_at,omitempty"`
	InvoiceID        *uuid.UUID             `json:"invoice_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// ReconcileResponse is the recomputed quantity picture of a source document
type ReconcileResponse struct {
	Source             trade.SourceRef `json:"source"`
	TotalQuantity      int             `json:"total"`
	DispatchedQuantity int             `json:"dispatched"`
	PendingQuantity    int             `json:"pending"`
	DispatchStatus     string          `json:"status"`
	Dispatched         bool            `json:"dispatched_flag"`
	DispatchCount      int             `json:"dispatch_count"`
	DocumentStatus     string          `json:"document_status"`
}

// CreateDispatchResponse returns the new dispatch with the reconciled source
type CreateDispatchResponse struct {
	Dispatch  DispatchResponse  `json:"dispatch"`
	Reconcile ReconcileResponse `json:"reconcile"`
}

// ==================== Payment DTOs ====================

// RecordPaymentRequest applies a payment to an order, PI or invoice
type RecordPaymentRequest struct {
	DocType    trade.DocumentType `json:"-"`
	DocID      uuid.UUID          `json:"-"`
	Amount     decimal.Decimal    `json:"amount" binding:"decimal_gt0"`
	Method     string             `json:"method" binding:"required,max=50"`
	Notes      string             `json:"notes"`
	RecordedBy string             `json:"-"`
}

// PaymentResult is the ledger state after a payment
type PaymentResult struct {
	Document        trade.SourceRef      `json:"document"`
	Entry           PaymentEntryResponse `json:"entry"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	PaymentReceived decimal.Decimal      `json:"payment_received"`
	BalanceDue      decimal.Decimal      `json:"balance"`
	PaymentStatus   string               `json:"status"`
	DocumentStatus  string               `json:"document_status"`
}

// SubmitPaymentRecordRequest submits payment evidence against a PI
type SubmitPaymentRecordRequest struct {
	ProformaInvoiceID uuid.UUID       `json:"-"`
	Amount            decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Currency          string          `json:"currency" binding:"omitempty,iso4217"`
	Method            string          `json:"method" binding:"required,max=50"`
	ProofRef          string          `json:"proof_ref" binding:"max=500"`
	Reference         string          `json:"reference" binding:"max=100"`
	Notes             string          `json:"notes"`
	SubmittedBy       string          `json:"-"`
}

// VerifyPaymentRecordRequest verifies a pending record. A zero recorded
// amount means the submitted amount is applied.
type VerifyPaymentRecordRequest struct {
	RecordID       uuid.UUID       `json:"-"`
	RecordedAmount decimal.Decimal `json:"recorded_amount" binding:"decimal_gte0"`
	Notes          string          `json:"notes"`
	ReviewedBy     string          `json:"-"`
}

// RejectPaymentRecordRequest rejects a pending record
type RejectPaymentRecordRequest struct {
	RecordID   uuid.UUID `json:"-"`
	Notes      string    `json:"notes"`
	ReviewedBy string    `json:"-"`
}

// EditPaymentRecordRequest changes the amount of a record
type EditPaymentRecordRequest struct {
	RecordID uuid.UUID       `json:"-"`
	Amount   decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Reason   string          `json:"reason" binding:"max=500"`
	EditedBy string          `json:"-"`
}

// PaymentRecordEditResponse represents one edit history entry
type PaymentRecordEditResponse struct {
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	EditedBy       string          `json:"edited_by"`
	EditedAt       time.Time       `json:"edited_at"`
	Reason         string          `json:"reason,omitempty"`
}

// PaymentRecordResponse represents a payment record in API responses
type PaymentRecordResponse struct {
	ID                uuid.UUID                   `json:"id"`
	RecordNumber      string                      `json:"record_number"`
	ProformaInvoiceID uuid.UUID                   `json:"proforma_invoice_id"`
	PINumber          string                      `json:"pi_number"`
	BuyerID           uuid.UUID                   `json:"buyer_id"`
	Amount            decimal.Decimal             `json:"amount"`
	RecordedAmount    decimal.Decimal             `json:"recorded_amount"`
	Currency          string                      `json:"currency"`
	Method            string                      `json:"method"`
	ProofRef          string                      `json:"proof_ref,omitempty"`
	Reference         string                      `json:"reference,omitempty"`
	Status            string                      `json:"status"`
	SubmittedBy       string                      `json:"submitted_by,omitempty"`
	ReviewedBy        string                      `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time                  `json:"reviewed_at,omitempty"`
	Notes             string                      `json:"notes,omitempty"`
	AdminNotes        string                      `json:"admin_notes,omitempty"`
	EditHistory       []PaymentRecordEditResponse `json:"edit_history"`
	CreatedAt         time.Time                   `json:"created_at"`
}

// VerifyPaymentRecordResponse returns the verified record and the PI ledger after it
type VerifyPaymentRecordResponse struct {
	Record  PaymentRecordResponse `json:"record"`
	Payment PaymentResult         `json:"payment"`
}

// ==================== Conversion DTOs ====================

// ConvertOptions tunes the target document of a conversion
type ConvertOptions struct {
	Notes      string     `json:"notes"`
	ValidUntil *time.Time `json:"valid_until"`
	DueDate    *time.Time `json:"due_date"`
	// DispatchID invoices only that dispatch of the source
	DispatchID *uuid.UUID `json:"dispatch_id"`
	// ShippingCharges overrides the charges carried from the source
	ShippingCharges *decimal.Decimal `json:"shipping_charges"`
	// Items and Shipping are used when the target is a dispatch
	Items    []DispatchLineInput `json:"items" binding:"omitempty,dive"`
	Shipping ShippingInput       `json:"shipping"`
}

// ConvertRequest converts a source document into a target type
type ConvertRequest struct {
	SourceType trade.DocumentType `json:"-"`
	SourceID   uuid.UUID          `json:"-"`
	TargetType string             `json:"target_type" binding:"required"`
	Options    ConvertOptions     `json:"options"`
	Actor      string             `json:"-"`
}

// ConvertResponse reports both sides of a conversion
type ConvertResponse struct {
	Source         trade.SourceRef        `json:"source"`
	SourceStatus   string                 `json:"source_status"`
	Target         trade.SourceRef        `json:"target"`
	Effect         trade.ConversionEffect `json:"effect"`
	TargetDocument interface{}            `json:"target_document"`
}

// ==================== Sequence DTOs ====================

// IdentifierResponse carries an allocated or previewed identifier
type IdentifierResponse struct {
	EntityType string `json:"entity_type"`
	Identifier string `json:"identifier"`
	YearScoped bool   `json:"year_scoped"`
	Consumed   bool   `json:"consumed"`
}

// ==================== Converters ====================

func toLineItemResponses(items trade.LineItems) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, item := range items {
		out[i] = LineItemResponse{
			ID:          item.ID,
			PartID:      item.PartID,
			PartNumber:  item.PartNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}
	return out
}

func toTotalsResponse(t trade.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:        t.Subtotal,
		TaxRate:         t.TaxRate,
		TaxAmount:       t.TaxAmount,
		ShippingCharges: t.ShippingCharges,
		TotalAmount:     t.TotalAmount,
		Currency:        t.Currency,
		ExchangeRate:    t.ExchangeRate,
	}
}

func toFulfillmentResponse(f trade.FulfillmentState) FulfillmentResponse {
	return FulfillmentResponse{
		TotalQuantity:      f.TotalQuantity,
		DispatchedQuantity: f.DispatchedQuantity,
		PendingQuantity:    f.PendingQuantity,
		DispatchStatus:     string(f.DispatchStatus),
		Dispatched:         f.Dispatched,
		DispatchCount:      f.DispatchCount,
	}
}

func toPaymentEntryResponse(e trade.PaymentEntry) PaymentEntryResponse {
	return PaymentEntryResponse{
		ID:              e.ID,
		Kind:            string(e.Kind),
		Amount:          e.Amount,
		Method:          e.Method,
		Notes:           e.Notes,
		RecordedBy:      e.RecordedBy,
		PaymentRecordID: e.PaymentRecordID,
		RecordedAt:      e.RecordedAt,
	}
}

func toLedgerResponse(l trade.Ledger) LedgerResponse {
	payments := make([]PaymentEntryResponse, len(l.Payments))
	for i, p := range l.Payments {
		payments[i] = toPaymentEntryResponse(p)
	}
	return LedgerResponse{
		PaymentReceived: l.PaymentReceived,
		BalanceDue:      l.BalanceDue,
		PaymentStatus:   string(l.PaymentStatus),
		Payments:        payments,
	}
}

// ToQuotationResponse converts a domain Quotation to QuotationResponse
func ToQuotationResponse(q *trade.Quotation) QuotationResponse {
	return QuotationResponse{
		ID:                q.ID,
		QuotationNumber:   q.QuotationNumber,
		BuyerID:           q.BuyerID,
		BuyerName:         q.BuyerName,
		Items:             toLineItemResponses(q.Items),
		Totals:            toTotalsResponse(q.Totals),
		Status:            string(q.Status),
		ValidUntil:        q.ValidUntil,
		Notes:             q.Notes,
		SourceOrderID:     q.SourceOrderID,
		ConvertedOrderID:  q.ConvertedOrderID,
		ProformaInvoiceID: q.ProformaInvoiceID,
		Version:           q.Version,
		CreatedAt:         q.CreatedAt,
		UpdatedAt:         q.UpdatedAt,
	}
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	return OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		PONumber:             o.PONumber,
		BuyerID:              o.BuyerID,
		BuyerName:            o.BuyerName,
		Items:                toLineItemResponses(o.Items),
		Totals:               toTotalsResponse(o.Totals),
		Fulfillment:          toFulfillmentResponse(o.FulfillmentState),
		Ledger:               toLedgerResponse(o.Ledger),
		Status:               string(o.Status),
		Notes:                o.Notes,
		SourceQuotationID:    o.SourceQuotationID,
		ConvertedQuotationID: o.ConvertedQuotationID,
		ProformaInvoiceID:    o.ProformaInvoiceID,
		InvoiceID:            o.InvoiceID,
		DispatchedAt:         o.DispatchedAt,
		CancelReason:         o.CancelReason,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// ToProformaInvoiceResponse converts a domain ProformaInvoice to ProformaInvoiceResponse
func ToProformaInvoiceResponse(pi *trade.ProformaInvoice) ProformaInvoiceResponse {
	return ProformaInvoiceResponse{
		ID:                 pi.ID,
		PINumber:           pi.PINumber,
		BuyerID:            pi.BuyerID,
		BuyerName:          pi.BuyerName,
		Items:              toLineItemResponses(pi.Items),
		Totals:             toTotalsResponse(pi.Totals),
		Fulfillment:        toFulfillmentResponse(pi.FulfillmentState),
		Ledger:             toLedgerResponse(pi.Ledger),
		AllocationComplete: pi.AllocationComplete,
		Status:             string(pi.Status),
		SourceType:         string(pi.SourceType),
		SourceID:           pi.SourceID,
		SourceNumber:       pi.SourceNumber,
		InvoiceID:          pi.InvoiceID,
		ValidUntil:         pi.ValidUntil,
		Notes:              pi.Notes,
		Version:            pi.Version,
		CreatedAt:          pi.CreatedAt,
		UpdatedAt:          pi.UpdatedAt,
	}
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *trade.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		SourceType:    string(inv.SourceType),
		SourceID:      inv.SourceID,
		SourceNumber:  inv.SourceNumber,
		DispatchID:    inv.DispatchID,
		BuyerID:       inv.BuyerID,
		BuyerName:     inv.BuyerName,
		Items:         toLineItemResponses(inv.Items),
		Totals:        toTotalsResponse(inv.Totals),
		Ledger:        toLedgerResponse(inv.Ledger),
		Status:        string(inv.Status),
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
	}
}

// ToDispatchResponse converts a domain Dispatch to DispatchResponse
func ToDispatchResponse(d *trade.Dispatch) DispatchResponse {
	items := make([]DispatchItemResponse, len(d.Items))
	for i, item := range d.Items {
		items[i] = DispatchItemResponse{
			LineItemID:  item.LineItemID,
			PartID:      item.PartID,
			PartNumber:  item.PartNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
		}
	}
	return DispatchResponse{
		ID:               d.ID,
		DispatchNumber:   d.DispatchNumber,
		SourceType:       string(d.SourceType),
		SourceID:         d.SourceID,
		SourceNumber:     d.SourceNumber,
		DispatchSequence: d.DispatchSequence,
		Items:            items,
		TotalQuantity:    d.TotalQuantity,
		IsPartial:        d.IsPartial,
		Status:           string(d.Status),
		Carrier:          d.Carrier,
		TrackingNumber:   d.TrackingNumber,
		ShippingAddress:  d.ShippingAddress,
		Notes:            d.ShippingNotes,
		ShippedAt:        d.ShippedAt,
		DeliveredAt:      d.DeliveredAt,
		InvoiceID:        d.InvoiceID,
		CreatedAt:        d.CreatedAt,
	}
}

// ToDispatchResponses converts a slice of dispatches
func ToDispatchResponses(dispatches []trade.Dispatch) []DispatchResponse {
	out := make([]DispatchResponse, len(dispatches))
	for i := range dispatches {
		out[i] = ToDispatchResponse(&dispatches[i])
	}
	return out
}

func toReconcileResponse(src sourceDocument, r trade.ReconcileResult) ReconcileResponse {
	return ReconcileResponse{
		Source:             src.Ref(),
		TotalQuantity:      r.TotalQuantity,
		DispatchedQuantity: r.DispatchedQuantity,
		PendingQuantity:    r.PendingQuantity,
		DispatchStatus:     string(r.DispatchStatus),
		Dispatched:         r.Dispatched,
		DispatchCount:      r.DispatchCount,
		DocumentStatus:     src.DocumentStatus(),
	}
}

func toPaymentResult(doc payableDocument, entry trade.PaymentEntry) PaymentResult {
	summary := doc.LedgerSummary()
	return PaymentResult{
		Document:        doc.Ref(),
		Entry:           toPaymentEntryResponse(entry),
		TotalAmount:     summary.TotalAmount,
		PaymentReceived: summary.PaymentReceived,
		BalanceDue:      summary.BalanceDue,
		PaymentStatus:   string(summary.PaymentStatus),
		DocumentStatus:  doc.DocumentStatus(),
	}
}

// ToPaymentRecordResponse converts a domain PaymentRecord to PaymentRecordResponse
func ToPaymentRecordResponse(r *trade.PaymentRecord) PaymentRecordResponse {
	history := make([]PaymentRecordEditResponse, len(r.EditHistory))
	for i, e := range r.EditHistory {
		history[i] = PaymentRecordEditResponse{
			PreviousAmount: e.PreviousAmount,
			NewAmount:      e.NewAmount,
			EditedBy:       e.EditedBy,
			EditedAt:       e.EditedAt,
			Reason:         e.Reason,
		}
	}
	return PaymentRecordResponse{
		ID:                r.ID,
		RecordNumber:      r.RecordNumber,
		ProformaInvoiceID: r.ProformaInvoiceID,
		PINumber:          r.PINumber,
		BuyerID:           r.BuyerID,
		Amount:            r.Amount,
		RecordedAmount:    r.RecordedAmount,
		Currency:          r.Currency,
		Method:            r.Method,
		ProofRef:          r.ProofRef,
		Reference:         r.Reference,
		Status:            string(r.Status),
		SubmittedBy:       r.SubmittedBy,
		ReviewedBy:        r.ReviewedBy,
		ReviewedAt:        r.ReviewedAt,
		Notes:             r.Notes,
		AdminNotes:        r.AdminNotes,
		EditHistory:       history,
		CreatedAt:         r.CreatedAt,
	}
}

func toShippingInfo(in ShippingInput) trade.ShippingInfo {
	return trade.ShippingInfo{
		Carrier:         in.Carrier,
		TrackingNumber:  in.TrackingNumber,
		ShippingAddress: in.ShippingAddress,
		ShippingNotes:   in.Notes,
		ShippedAt:       in.ShippedAt,
	}
}

func toDispatchRequestLines(in []DispatchLineInput) []trade.DispatchRequestLine {
	out := make([]trade.DispatchRequestLine, len(in))
	for i, line := range in {
		out[i] = trade.DispatchRequestLine{LineItemID: line.LineItemID, Quantity: line.Quantity}
	}
	return out
}

func (f DocumentListFilter) toShared() shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	if f.Status != "" {
		filter = filter.Where("status", f.Status)
	}
	if f.BuyerID != nil {
		filter = filter.Where("buyer_id", *f.BuyerID)
	}
	return filter
}
