package handler

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// LedgerHandler records payments against billable documents
type LedgerHandler struct {
	BaseHandler
	ledger *fulfillment.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger *fulfillment.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RecordPayment godoc
// @Summary      Record a payment against an order, proforma invoice or invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id      path string                           true "Document ID"
// @Param        request body fulfillment.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /orders/{id}/payments [post]
// @Router       /proforma-invoices/{id}/payments [post]
// @Router       /invoices/{id}/payments [post]
func (h *LedgerHandler) RecordPayment(docType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		var req fulfillment.RecordPaymentRequest
		if !h.bindJSON(c, &req) {
			return
		}
		req.DocType = docType
		req.DocID = id
		req.RecordedBy = actor(c)

		result, err := h.ledger.RecordPayment(c.Request.Context(), req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, result)
	}
}

// GetLedger returns the payment history and balance of a document
func (h *LedgerHandler) GetLedger(docType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		ledger, err := h.ledger.GetLedger(c.Request.Context(), docType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, ledger)
	}
}
