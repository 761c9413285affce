package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventHandler serves the journal of committed domain events
type EventHandler struct {
	BaseHandler
	journal event.JournalRepository
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(journal event.JournalRepository) *EventHandler {
	return &EventHandler{journal: journal}
}

// EventResponse is one journaled event
type EventResponse struct {
	ID            uuid.UUID       `json:"id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	Actor         string          `json:"actor,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// History godoc
// @Summary      List the events recorded for one document
// @Tags         events
// @Produce      json
// @Param        id    path  string true  "Document ID"
// @Param        limit query int    false "Maximum entries (default 100, max 500)"
// @Success      200 {object} dto.Response
// @Router       /quotations/{id}/events [get]
// @Router       /orders/{id}/events [get]
// @Router       /proforma-invoices/{id}/events [get]
// @Router       /invoices/{id}/events [get]
// @Router       /dispatches/{id}/events [get]
// @Router       /payment-records/{id}/events [get]
func (h *EventHandler) History(aggregateType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				h.BadRequest(c, "limit must be a positive integer")
				return
			}
			limit = n
		}

		entries, err := h.journal.FindByAggregate(c.Request.Context(), id, limit)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		out := make([]EventResponse, 0, len(entries))
		for _, e := range entries {
			// the journal is keyed by aggregate ID only
			if e.AggregateType != aggregateType {
				continue
			}
			out = append(out, EventResponse{
				ID:            e.ID,
				EventType:     e.EventType,
				AggregateType: e.AggregateType,
				AggregateID:   e.AggregateID,
				Payload:       json.RawMessage(e.Payload),
				Actor:         e.Actor,
				RequestID:     e.RequestID,
				OccurredAt:    e.OccurredAt,
			})
		}
		h.Success(c, out)
	}
}
