package handler

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/gin-gonic/gin"
)

// PaymentRecordHandler serves buyer-submitted payment evidence and its review
type PaymentRecordHandler struct {
	BaseHandler
	records *fulfillment.PaymentRecordService
}

// NewPaymentRecordHandler creates a new PaymentRecordHandler
func NewPaymentRecordHandler(records *fulfillment.PaymentRecordService) *PaymentRecordHandler {
	return &PaymentRecordHandler{records: records}
}

// Submit godoc
// @Summary      Submit a payment record against a proforma invoice
// @Tags         payment-records
// @Accept       json
// @Produce      json
// @Param        id      path string                                 true "Proforma invoice ID"
// @Param        request body fulfillment.SubmitPaymentRecordRequest true "Payment evidence"
// @Success      201 {object} dto.Response
// @Router       /proforma-invoices/{id}/payment-records [post]
func (h *PaymentRecordHandler) Submit(c *gin.Context) {
	piID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfillment.SubmitPaymentRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ProformaInvoiceID = piID
	req.SubmittedBy = actor(c)

	record, err := h.records.Submit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// ListByProformaInvoice returns the records submitted against a PI
func (h *PaymentRecordHandler) ListByProformaInvoice(c *gin.Context) {
	piID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	records, err := h.records.ListByProformaInvoice(c.Request.Context(), piID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// Get returns one payment record
func (h *PaymentRecordHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	record, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// Verify godoc
// @Summary      Verify a pending payment record
// @Description  Applies the recorded amount to the proforma invoice ledger.
// @Tags         payment-records
// @Accept       json
// @Produce      json
// @Param        id      path string                                 true "Payment record ID"
// @Param        request body fulfillment.VerifyPaymentRecordRequest true "Review"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /payment-records/{id}/verify [post]
func (h *PaymentRecordHandler) Verify(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfillment.VerifyPaymentRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.RecordID = id
	req.ReviewedBy = actor(c)

	resp, err := h.records.Verify(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject godoc
// @Summary      Reject a pending payment record
// @Tags         payment-records
// @Accept       json
// @Produce      json
// @Param        id      path string                                 true "Payment record ID"
// @Param        request body fulfillment.RejectPaymentRecordRequest true "Review"
// @Success      200 {object} dto.Response
// @Router       /payment-records/{id}/reject [post]
func (h *PaymentRecordHandler) Reject(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfillment.RejectPaymentRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.RecordID = id
	req.ReviewedBy = actor(c)

	record, err := h.records.Reject(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// Edit godoc
// @Summary      Change the amount of a payment record
// @Description  Editing a verified record adjusts the proforma invoice ledger by the difference.
// @Tags         payment-records
// @Accept       json
// @Produce      json
// @Param        id      path string                               true "Payment record ID"
// @Param        request body fulfillment.EditPaymentRecordRequest true "New amount"
// @Success      200 {object} dto.Response
// @Router       /payment-records/{id} [patch]
func (h *PaymentRecordHandler) Edit(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfillment.EditPaymentRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.RecordID = id
	req.EditedBy = actor(c)

	record, err := h.records.Edit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}
