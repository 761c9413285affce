package handler

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// ConversionHandler converts a document into another type
type ConversionHandler struct {
	BaseHandler
	conversion *fulfillment.ConversionService
}

// NewConversionHandler creates a new ConversionHandler
func NewConversionHandler(conversion *fulfillment.ConversionService) *ConversionHandler {
	return &ConversionHandler{conversion: conversion}
}

// Convert godoc
// @Summary      Convert a document
// @Description  Supported: quotation to order or proforma invoice, order to
// @Description  quotation, proforma invoice, dispatch or invoice, proforma
// @Description  invoice to dispatch or invoice.
// @Tags         conversions
// @Accept       json
// @Produce      json
// @Param        id      path string                     true "Source document ID"
// @Param        request body fulfillment.ConvertRequest true "Target type and options"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /quotations/{id}/convert [post]
// @Router       /orders/{id}/convert [post]
// @Router       /proforma-invoices/{id}/convert [post]
// @Router       /invoices/{id}/convert [post]
func (h *ConversionHandler) Convert(sourceType trade.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		var req fulfillment.ConvertRequest
		if !h.bindJSON(c, &req) {
			return
		}
		req.SourceType = sourceType
		req.SourceID = id
		req.Actor = actor(c)

		resp, err := h.conversion.Convert(c.Request.Context(), req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, resp)
	}
}
