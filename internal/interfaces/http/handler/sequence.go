package handler

import (
	"strconv"
	"strings"

	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/gin-gonic/gin"
)

// SequenceHandler exposes the identifier allocator
type SequenceHandler struct {
	BaseHandler
	allocator *fulfillment.IdentifierAllocator
}

// NewSequenceHandler creates a new SequenceHandler
func NewSequenceHandler(allocator *fulfillment.IdentifierAllocator) *SequenceHandler {
	return &SequenceHandler{allocator: allocator}
}

// Allocate godoc
// @Summary      Allocate the next identifier of a series
// @Description  Consumes the next value. year_scoped overrides the series default.
// @Tags         sequences
// @Produce      json
// @Param        entity_type path  string true  "Series, e.g. ORDER or proforma-invoice"
// @Param        year_scoped query bool   false "Reset the counter every year"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /sequences/{entity_type}/allocate [post]
func (h *SequenceHandler) Allocate(c *gin.Context) {
	entityType, yearScoped, ok := h.series(c)
	if !ok {
		return
	}
	id, err := h.allocator.AllocateID(c.Request.Context(), entityType, yearScoped)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, fulfillment.IdentifierResponse{
		EntityType: entityType.String(),
		Identifier: id,
		YearScoped: yearScoped,
		Consumed:   true,
	})
}

// Peek godoc
// @Summary      Preview the next identifier of a series
// @Description  Does not consume the value; a concurrent allocation may take it.
// @Tags         sequences
// @Produce      json
// @Param        entity_type path  string true  "Series"
// @Param        year_scoped query bool   false "Reset the counter every year"
// @Success      200 {object} dto.Response
// @Router       /sequences/{entity_type}/peek [get]
func (h *SequenceHandler) Peek(c *gin.Context) {
	entityType, yearScoped, ok := h.series(c)
	if !ok {
		return
	}
	id, err := h.allocator.PeekNext(c.Request.Context(), entityType, yearScoped)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillment.IdentifierResponse{
		EntityType: entityType.String(),
		Identifier: id,
		YearScoped: yearScoped,
	})
}

func (h *SequenceHandler) series(c *gin.Context) (sequence.EntityType, bool, bool) {
	entityType := sequence.EntityType(strings.ToUpper(strings.ReplaceAll(c.Param("entity_type"), "-", "_")))
	def, err := sequence.Lookup(entityType)
	if err != nil {
		h.HandleError(c, err)
		return "", false, false
	}

	yearScoped := def.YearScoped
	if raw := c.Query("year_scoped"); raw != "" {
		yearScoped, err = strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "year_scoped must be true or false")
			return "", false, false
		}
	}
	return entityType, yearScoped, true
}
