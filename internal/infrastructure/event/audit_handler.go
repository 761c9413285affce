package event

import (
	"context"
	"fmt"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditHandler journals every fulfillment event together with the actor and
// request that caused it.
type AuditHandler struct {
	journal    JournalRepository
	serializer *EventSerializer
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuditHandler creates an audit handler writing to journal
func NewAuditHandler(journal JournalRepository, serializer *EventSerializer, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		journal:    journal,
		serializer: serializer,
		logger:     logger,
		now:        time.Now,
	}
}

// EventTypes subscribes to every event
func (h *AuditHandler) EventTypes() []string {
	return nil
}

// Handle serializes and appends the event
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}

	entry := &JournalEntry{
		ID:            event.EventID(),
		EventType:     event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Payload:       string(payload),
		Actor:         logger.GetActor(ctx),
		RequestID:     logger.GetRequestID(ctx),
		OccurredAt:    event.OccurredAt(),
		RecordedAt:    h.now(),
	}
	if err := h.journal.Append(ctx, entry); err != nil {
		return fmt.Errorf("audit %s: %w", event.EventType(), err)
	}

	logger.WithLogger(ctx, h.logger).Info("fulfillment event",
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_type", entry.AggregateType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
