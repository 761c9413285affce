package fulfillment

import (
	"context"
	"fmt"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"go.uber.org/zap"
)

// DispatchDeliveredHandler handles DocumentStatusChangedEvent for dispatches
// and closes an order once all of its shipments have been delivered
type DispatchDeliveredHandler struct {
	reconciliation *ReconciliationService
	dispatches     trade.DispatchRepository
	logger         *zap.Logger
}

// NewDispatchDeliveredHandler creates a new handler for dispatch delivery events
func NewDispatchDeliveredHandler(
	reconciliation *ReconciliationService,
	dispatches trade.DispatchRepository,
	logger *zap.Logger,
) *DispatchDeliveredHandler {
	return &DispatchDeliveredHandler{
		reconciliation: reconciliation,
		dispatches:     dispatches,
		logger:         logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *DispatchDeliveredHandler) EventTypes() []string {
	return []string{trade.EventTypeDocumentStatusChanged}
}

// Handle processes a status change. Only dispatches reaching DELIVERED are acted on.
func (h *DispatchDeliveredHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*trade.DocumentStatusChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeDocumentStatusChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeDocumentStatusChanged, event.EventType())
	}
	if changed.Document.Type != trade.DocumentDispatch || changed.ToStatus != string(trade.ShipmentStatusDelivered) {
		return nil
	}

	dispatch, err := h.dispatches.FindByID(ctx, changed.Document.ID)
	if err != nil {
		h.logger.Error("failed to load delivered dispatch",
			zap.String("dispatch_id", changed.Document.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to load dispatch: %w", err)
	}
	if dispatch.SourceType != trade.DocumentOrder {
		return nil
	}

	delivered, err := h.reconciliation.CompleteDelivery(ctx, dispatch.SourceID)
	if err != nil {
		h.logger.Error("failed to complete order delivery",
			zap.String("order_id", dispatch.SourceID.String()),
			zap.String("dispatch_number", dispatch.DispatchNumber),
			zap.Error(err),
		)
		return fmt.Errorf("failed to complete delivery: %w", err)
	}
	if delivered {
		h.logger.Info("order delivered",
			zap.String("order_number", dispatch.SourceNumber),
			zap.String("last_dispatch", dispatch.DispatchNumber),
		)
	}
	return nil
}

var _ shared.EventHandler = (*DispatchDeliveredHandler)(nil)
