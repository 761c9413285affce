package fulfillment

import (
	"context"
	"fmt"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService handles creation, lookup and status changes of quotations,
// orders, proforma invoices and invoices
type DocumentService struct {
	serviceBase
	pricing PricingDefaults
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg ServiceConfig) *DocumentService {
	return &DocumentService{serviceBase: newServiceBase(cfg)}
}

// SetPricingDefaults sets the tax rate and exchange rates used when a request omits them
func (s *DocumentService) SetPricingDefaults(p PricingDefaults) {
	s.pricing = p
}

// CreateQuotation creates a DRAFT quotation
func (s *DocumentService) CreateQuotation(ctx context.Context, req CreateQuotationRequest) (*QuotationResponse, error) {
	items, err := buildLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.resolve(req.PricingRequest)
	if err != nil {
		return nil, err
	}

	var response QuotationResponse
	err = s.inTx(ctx, func(repos TransactionalRepositories, events *eventBatch) error {
		number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityQuotation)
		if err != nil {
			return err
		}
		q, err := trade.NewQuotation(number, trade.Buyer{ID: req.BuyerID, Name: req.BuyerName}, items, pricing, req.ValidUntil)
		if err != nil {
			return err
		}
		q.Notes = req.Notes
		if err := repos.Quotations().Create(ctx, q); err != nil {
			return err
		}
		events.collect(q)
		response = ToQuotationResponse(q)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIdentifierAllocated(ctx, string(sequence.EntityQuotation))
	s.logger.Info("Quotation created", zap.String("quotation_number", response.QuotationNumber))
	return &response, nil
}

// CreateOrder creates a PENDING buyer order with its order and PO numbers
func (s *DocumentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	items, err := buildLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.resolve(req.PricingRequest)
	if err != nil {
		return nil, err
	}

	var response OrderResponse
	err = s.inTx(ctx, func(repos TransactionalRepositories, events *eventBatch) error {
		o, err := s.newOrder(ctx, repos, trade.Buyer{ID: req.BuyerID, Name: req.BuyerName}, items, pricing, trade.OrderStatusPending)
		if err != nil {
			return err
		}
		o.Notes = req.Notes
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}
		events.collect(o)
		response = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIdentifierAllocated(ctx, string(sequence.EntityOrder))
	s.metrics.RecordIdentifierAllocated(ctx, string(sequence.EntityPONumber))
	s.logger.Info("Order created",
		zap.String("order_number", response.OrderNumber),
		zap.String("po_number", response.PONumber),
	)
	return &response, nil
}

// newOrder allocates both numbers of an order inside the caller's transaction
func (s *serviceBase) newOrder(ctx context.Context, repos TransactionalRepositories, buyer trade.Buyer, items trade.LineItems, pricing trade.PricingInput, status trade.OrderStatus) (*trade.Order, error) {
	allocator := s.allocator.Within(repos.Counters())
	orderNumber, err := allocator.Allocate(ctx, sequence.EntityOrder)
	if err != nil {
		return nil, err
	}
	poNumber, err := allocator.Allocate(ctx, sequence.EntityPONumber)
	if err != nil {
		return nil, err
	}
	return trade.NewOrder(orderNumber, poNumber, buyer, items, pricing, status)
}

// CreateProformaInvoice creates a PENDING proforma invoice not linked to any source
func (s *DocumentService) CreateProformaInvoice(ctx context.Context, req CreateProformaInvoiceRequest) (*ProformaInvoiceResponse, error) {
	items, err := buildLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.resolve(req.PricingRequest)
	if err != nil {
		return nil, err
	}

	var response ProformaInvoiceResponse
	err = s.inTx(ctx, func(repos TransactionalRepositories, events *eventBatch) error {
		number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityProformaInvoice)
		if err != nil {
			return err
		}
		pi, err := trade.NewProformaInvoice(number, trade.Buyer{ID: req.BuyerID, Name: req.BuyerName}, items, pricing, nil, req.ValidUntil)
		if err != nil {
			return err
		}
		pi.Notes = req.Notes
		if err := repos.ProformaInvoices().Create(ctx, pi); err != nil {
			return err
		}
		events.collect(pi)
		response = ToProformaInvoiceResponse(pi)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIdentifierAllocated(ctx, string(sequence.EntityProformaInvoice))
	s.logger.Info("Proforma invoice created", zap.String("pi_number", response.PINumber))
	return &response, nil
}

// GetQuotation retrieves a quotation by ID
func (s *DocumentService) GetQuotation(ctx context.Context, id uuid.UUID) (*QuotationResponse, error) {
	q, err := s.repos.Quotations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToQuotationResponse(q)
	return &response, nil
}

// GetOrder retrieves an order by ID
func (s *DocumentService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.repos.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// GetProformaInvoice retrieves a proforma invoice by ID
func (s *DocumentService) GetProformaInvoice(ctx context.Context, id uuid.UUID) (*ProformaInvoiceResponse, error) {
	pi, err := s.repos.ProformaInvoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProformaInvoiceResponse(pi)
	return &response, nil
}

// GetInvoice retrieves an invoice by ID
func (s *DocumentService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repos.Invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// ListQuotations retrieves a page of quotations
func (s *DocumentService) ListQuotations(ctx context.Context, filter DocumentListFilter) (*shared.Paginated[QuotationResponse], error) {
	f := filter.toShared()
	quotations, err := s.repos.Quotations.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Quotations.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]QuotationResponse, len(quotations))
	for i := range quotations {
		items[i] = ToQuotationResponse(&quotations[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// ListOrders retrieves a page of orders
func (s *DocumentService) ListOrders(ctx context.Context, filter DocumentListFilter) (*shared.Paginated[OrderResponse], error) {
	f := filter.toShared()
	orders, err := s.repos.Orders.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Orders.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// ListProformaInvoices retrieves a page of proforma invoices
func (s *DocumentService) ListProformaInvoices(ctx context.Context, filter DocumentListFilter) (*shared.Paginated[ProformaInvoiceResponse], error) {
	f := filter.toShared()
	pis, err := s.repos.ProformaInvoices.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.ProformaInvoices.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]ProformaInvoiceResponse, len(pis))
	for i := range pis {
		items[i] = ToProformaInvoiceResponse(&pis[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// ListInvoices retrieves a page of invoices
func (s *DocumentService) ListInvoices(ctx context.Context, filter DocumentListFilter) (*shared.Paginated[InvoiceResponse], error) {
	f := filter.toShared()
	invoices, err := s.repos.Invoices.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Invoices.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i] = ToInvoiceResponse(&invoices[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// ChangeStatus moves a document along its own lifecycle. Conversions and
// dispatch-driven transitions go through ConversionService and
// ReconciliationService instead.
func (s *DocumentService) ChangeStatus(ctx context.Context, docType trade.DocumentType, id uuid.UUID, req ChangeStatusRequest) (interface{}, error) {
	var response interface{}
	err := s.mutate(ctx, "change_status", docType, id, func(repos TransactionalRepositories, events *eventBatch) error {
		switch docType {
		case trade.DocumentQuotation:
			q, err := repos.Quotations().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := s.applyQuotationStatus(q, trade.QuotationStatus(req.Status), req.Reason); err != nil {
				return err
			}
			if err := repos.Quotations().SaveWithLock(ctx, q); err != nil {
				return err
			}
			events.collect(q)
			response = ToQuotationResponse(q)
		case trade.DocumentOrder:
			o, err := repos.Orders().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := applyOrderStatus(o, trade.OrderStatus(req.Status), req.Reason); err != nil {
				return err
			}
			if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
				return err
			}
			events.collect(o)
			response = ToOrderResponse(o)
		case trade.DocumentProformaInvoice:
			pi, err := repos.ProformaInvoices().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := applyProformaInvoiceStatus(pi, trade.ProformaInvoiceStatus(req.Status), req.Reason); err != nil {
				return err
			}
			if err := repos.ProformaInvoices().SaveWithLock(ctx, pi); err != nil {
				return err
			}
			events.collect(pi)
			response = ToProformaInvoiceResponse(pi)
		case trade.DocumentInvoice:
			inv, err := repos.Invoices().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := applyInvoiceStatus(inv, trade.InvoiceStatus(req.Status)); err != nil {
				return err
			}
			if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			events.collect(inv)
			response = ToInvoiceResponse(inv)
		default:
			return shared.NewInvalidInputError("INVALID_DOCUMENT_TYPE",
				fmt.Sprintf("Status of a %s cannot be changed here", docType.Label()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document status changed",
		zap.String("document_type", string(docType)),
		zap.String("document_id", id.String()),
		zap.String("status", req.Status),
	)
	return response, nil
}

func (s *DocumentService) applyQuotationStatus(q *trade.Quotation, target trade.QuotationStatus, reason string) error {
	switch target {
	case trade.QuotationStatusSent:
		return q.Send()
	case trade.QuotationStatusAccepted:
		return q.Accept(s.now())
	case trade.QuotationStatusRejected:
		return q.Reject(reason)
	case trade.QuotationStatusExpired:
		return q.Expire()
	case trade.QuotationStatusConverted:
		return unsupportedStatus(trade.DocumentQuotation, string(target), "use the convert operation")
	}
	return unsupportedStatus(trade.DocumentQuotation, string(target), "")
}

func applyOrderStatus(o *trade.Order, target trade.OrderStatus, reason string) error {
	switch target {
	case trade.OrderStatusQuoted:
		return o.MarkQuoted()
	case trade.OrderStatusOpen:
		return o.Open()
	case trade.OrderStatusProcessing:
		return o.StartProcessing()
	case trade.OrderStatusDelivered:
		return o.MarkDelivered()
	case trade.OrderStatusCancelled:
		return o.Cancel(reason)
	case trade.OrderStatusDispatched:
		return unsupportedStatus(trade.DocumentOrder, string(target), "it follows from dispatches")
	case trade.OrderStatusConverted:
		return unsupportedStatus(trade.DocumentOrder, string(target), "use the convert operation")
	}
	return unsupportedStatus(trade.DocumentOrder, string(target), "")
}

func applyProformaInvoiceStatus(pi *trade.ProformaInvoice, target trade.ProformaInvoiceStatus, reason string) error {
	switch target {
	case trade.ProformaInvoiceStatusSent:
		return pi.Send()
	case trade.ProformaInvoiceStatusApproved:
		return pi.Approve()
	case trade.ProformaInvoiceStatusRejected:
		return pi.Reject(reason)
	case trade.ProformaInvoiceStatusExpired:
		return pi.Expire()
	}
	return unsupportedStatus(trade.DocumentProformaInvoice, string(target), "")
}

func applyInvoiceStatus(inv *trade.Invoice, target trade.InvoiceStatus) error {
	switch target {
	case trade.InvoiceStatusOverdue:
		return inv.MarkOverdue()
	case trade.InvoiceStatusCancelled:
		return inv.Cancel()
	case trade.InvoiceStatusRefunded:
		return inv.Refund()
	case trade.InvoiceStatusUnpaid, trade.InvoiceStatusPartial, trade.InvoiceStatusPaid:
		return unsupportedStatus(trade.DocumentInvoice, string(target), "it follows from payments")
	}
	return unsupportedStatus(trade.DocumentInvoice, string(target), "")
}

func unsupportedStatus(docType trade.DocumentType, target, hint string) error {
	msg := fmt.Sprintf("Cannot set %s status to %s", docType.Label(), target)
	if hint != "" {
		msg += ": " + hint
	}
	return shared.NewInvalidInputError("UNSUPPORTED_STATUS", msg)
}
