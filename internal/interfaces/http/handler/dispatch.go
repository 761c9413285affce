package handler

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// DispatchHandler serves dispatches and quantity reconciliation
type DispatchHandler struct {
	BaseHandler
	reconciliation *fulfillment.ReconciliationService
}

// NewDispatchHandler creates a new DispatchHandler
func NewDispatchHandler(reconciliation *fulfillment.ReconciliationService) *DispatchHandler {
	return &DispatchHandler{reconciliation: reconciliation}
}

// Create godoc
// @Summary      Dispatch part or all of an order or proforma invoice
// @Tags         dispatches
// @Accept       json
// @Produce      json
// @Param        id      path string                            true "Source document ID"
// @Param        request body fulfillment.CreateDispatchRequest true "Lines and shipping"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /orders/{id}/dispatches [post]
// @Router       /proforma-invoices/{id}/dispatches [post]
func (h *DispatchHandler) Create(sourceType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		var req fulfillment.CreateDispatchRequest
		if !h.bindJSON(c, &req) {
			return
		}
		req.SourceType = sourceType
		req.SourceID = id
		req.CreatedBy = actor(c)

		resp, err := h.reconciliation.CreateDispatch(c.Request.Context(), req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, resp)
	}
}

// List returns the dispatches raised against a source, oldest first
func (h *DispatchHandler) List(sourceType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		dispatches, err := h.reconciliation.ListDispatches(c.Request.Context(), sourceType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dispatches)
	}
}

// Reconcile godoc
// @Summary      Recompute dispatched and pending quantities of a source
// @Tags         dispatches
// @Produce      json
// @Param        id path string true "Source document ID"
// @Success      200 {object} dto.Response
// @Router       /orders/{id}/reconcile [post]
// @Router       /proforma-invoices/{id}/reconcile [post]
func (h *DispatchHandler) Reconcile(sourceType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		resp, err := h.reconciliation.ReconcileQuantities(c.Request.Context(), sourceType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}

// Repair godoc
// @Summary      Remove a dispatch and restore the source's quantities
// @Tags         dispatches
// @Produce      json
// @Param        id          path string true "Source document ID"
// @Param        dispatch_id path string true "Dispatch ID"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /orders/{id}/dispatches/{dispatch_id} [delete]
// @Router       /proforma-invoices/{id}/dispatches/{dispatch_id} [delete]
func (h *DispatchHandler) Repair(sourceType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		dispatchID, ok := h.uuidParam(c, "dispatch_id")
		if !ok {
			return
		}
		resp, err := h.reconciliation.RepairDispatchInconsistency(c.Request.Context(), sourceType, id, dispatchID, actor(c))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}

// Get returns one dispatch
func (h *DispatchHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := h.reconciliation.GetDispatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

// UpdateTracking godoc
// @Summary      Update the shipment status or tracking details of a dispatch
// @Tags         dispatches
// @Accept       json
// @Produce      json
// @Param        id      path string                                    true "Dispatch ID"
// @Param        request body fulfillment.UpdateDispatchTrackingRequest true "Tracking"
// @Success      200 {object} dto.Response
// @Router       /dispatches/{id}/tracking [patch]
func (h *DispatchHandler) UpdateTracking(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfillment.UpdateDispatchTrackingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.DispatchID = id

	d, err := h.reconciliation.UpdateDispatchTracking(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

// CompleteDeliveryResponse reports whether the order moved to delivered
type CompleteDeliveryResponse struct {
	Completed bool `json:"completed"`
}

// CompleteDelivery marks an order delivered once all of its dispatches are
func (h *DispatchHandler) CompleteDelivery(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	completed, err := h.reconciliation.CompleteDelivery(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CompleteDeliveryResponse{Completed: completed})
}
