package handler

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// DocumentHandler serves quotations, orders, proforma invoices and invoices
type DocumentHandler struct {
	BaseHandler
	documents *fulfillment.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents *fulfillment.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// CreateQuotation godoc
// @Summary      Create a quotation
// @Tags         quotations
// @Accept       json
// @Produce      json
// @Param        request body fulfillment.CreateQuotationRequest true "Quotation"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /quotations [post]
func (h *DocumentHandler) CreateQuotation(c *gin.Context) {
	var req fulfillment.CreateQuotationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.documents.CreateQuotation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, q)
}

// CreateOrder godoc
// @Summary      Create a buyer order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body fulfillment.CreateOrderRequest true "Order"
// @Success      201 {object} dto.Response
// @Router       /orders [post]
func (h *DocumentHandler) CreateOrder(c *gin.Context) {
	var req fulfillment.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	o, err := h.documents.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, o)
}

// CreateProformaInvoice godoc
// @Summary      Create a standalone proforma invoice
// @Tags         proforma-invoices
// @Accept       json
// @Produce      json
// @Param        request body fulfillment.CreateProformaInvoiceRequest true "Proforma invoice"
// @Success      201 {object} dto.Response
// @Router       /proforma-invoices [post]
func (h *DocumentHandler) CreateProformaInvoice(c *gin.Context) {
	var req fulfillment.CreateProformaInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	pi, err := h.documents.CreateProformaInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, pi)
}

// Get returns the handler for GET /{documents}/:id of one document type
func (h *DocumentHandler) Get(docType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var (
			doc any
			err error
		)
		switch docType {
		case trade.DocumentQuotation:
			doc, err = h.documents.GetQuotation(ctx, id)
		case trade.DocumentOrder:
			doc, err = h.documents.GetOrder(ctx, id)
		case trade.DocumentProformaInvoice:
			doc, err = h.documents.GetProformaInvoice(ctx, id)
		case trade.DocumentInvoice:
			doc, err = h.documents.GetInvoice(ctx, id)
		default:
			h.BadRequest(c, "Unsupported document type")
			return
		}
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, doc)
	}
}

// List returns the handler for GET /{documents} of one document type
func (h *DocumentHandler) List(docType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter fulfillment.DocumentListFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		ctx := c.Request.Context()

		switch docType {
		case trade.DocumentQuotation:
			listPage(h, c, func() (*shared.Paginated[fulfillment.QuotationResponse], error) {
				return h.documents.ListQuotations(ctx, filter)
			})
		case trade.DocumentOrder:
			listPage(h, c, func() (*shared.Paginated[fulfillment.OrderResponse], error) {
				return h.documents.ListOrders(ctx, filter)
			})
		case trade.DocumentProformaInvoice:
			listPage(h, c, func() (*shared.Paginated[fulfillment.ProformaInvoiceResponse], error) {
				return h.documents.ListProformaInvoices(ctx, filter)
			})
		case trade.DocumentInvoice:
			listPage(h, c, func() (*shared.Paginated[fulfillment.InvoiceResponse], error) {
				return h.documents.ListInvoices(ctx, filter)
			})
		default:
			h.BadRequest(c, "Unsupported document type")
		}
	}
}

// ChangeStatus godoc
// @Summary      Move a document to another status
// @Description  Cancelling a converted document is rejected; terminal states are final.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id      path string                          true "Document ID"
// @Param        request body fulfillment.ChangeStatusRequest true "Target status"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /quotations/{id}/status [patch]
// @Router       /orders/{id}/status [patch]
// @Router       /proforma-invoices/{id}/status [patch]
// @Router       /invoices/{id}/status [patch]
func (h *DocumentHandler) ChangeStatus(docType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		var req fulfillment.ChangeStatusRequest
		if !h.bindJSON(c, &req) {
			return
		}
		doc, err := h.documents.ChangeStatus(c.Request.Context(), docType, id, req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, doc)
	}
}

func listPage[T any](h *DocumentHandler, c *gin.Context, list func() (*shared.Paginated[T], error)) {
	page, err := list()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
