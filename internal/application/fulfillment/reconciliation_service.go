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

// ReconciliationService keeps the dispatch quantities of orders and proforma
// invoices consistent with their dispatch records
type ReconciliationService struct {
	serviceBase
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(cfg ServiceConfig) *ReconciliationService {
	return &ReconciliationService{serviceBase: newServiceBase(cfg)}
}

// ReconcileQuantities recomputes and persists the fulfillment fields of a source
func (s *ReconciliationService) ReconcileQuantities(ctx context.Context, sourceType trade.DocumentType, sourceID uuid.UUID) (*ReconcileResponse, error) {
	if !sourceType.IsDispatchSource() {
		return nil, shared.NewInvalidInputError("INVALID_SOURCE",
			fmt.Sprintf("Dispatches cannot be raised against a %s", sourceType.Label()))
	}

	var response ReconcileResponse
	err := s.mutate(ctx, "reconcile", sourceType, sourceID, func(repos TransactionalRepositories, events *eventBatch) error {
		src, err := loadDispatchSource(ctx, repos, sourceType, sourceID)
		if err != nil {
			return err
		}
		result, err := s.reconcile(ctx, repos, src)
		if err != nil {
			return err
		}
		if err := saveDispatchSource(ctx, repos, src); err != nil {
			return err
		}
		events.collect(src)
		response = toReconcileResponse(src, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// reconcile loads the dispatches of src and applies the recomputed state to it
func (s *ReconciliationService) reconcile(ctx context.Context, repos TransactionalRepositories, src sourceDocument) (trade.ReconcileResult, error) {
	ref := src.Ref()
	dispatches, err := repos.Dispatches().FindBySource(ctx, ref.Type, ref.ID)
	if err != nil {
		return trade.ReconcileResult{}, err
	}
	result := trade.Reconcile(ref, src.LineItems(), dispatches)
	if result.Overshipped() {
		s.logger.Warn("Source is over-dispatched",
			zap.String("source_type", string(ref.Type)),
			zap.String("source_number", ref.Number),
			zap.Int("total", result.TotalQuantity),
			zap.Int("dispatched", result.DispatchedQuantity),
		)
	}
	if err := src.ApplyReconciliation(result); err != nil {
		return trade.ReconcileResult{}, err
	}
	return result, nil
}

// CreateDispatch records a shipment against an order or proforma invoice.
// The dispatch insert, the reconcile and the version-checked source update
// commit together; a lost race is retried from a fresh read.
func (s *ReconciliationService) CreateDispatch(ctx context.Context, req CreateDispatchRequest) (*CreateDispatchResponse, error) {
	if !req.SourceType.IsDispatchSource() {
		return nil, shared.NewInvalidInputError("INVALID_SOURCE",
			fmt.Sprintf("Dispatches cannot be raised against a %s", req.SourceType.Label()))
	}
	lines := toDispatchRequestLines(req.Items)

	var response CreateDispatchResponse
	var partial bool
	var quantity int
	err := s.mutate(ctx, "create_dispatch", req.SourceType, req.SourceID, func(repos TransactionalRepositories, events *eventBatch) error {
		src, err := loadDispatchSource(ctx, repos, req.SourceType, req.SourceID)
		if err != nil {
			return err
		}
		if err := src.CanDispatch(); err != nil {
			return err
		}

		ref := src.Ref()
		existing, err := repos.Dispatches().FindBySource(ctx, ref.Type, ref.ID)
		if err != nil {
			return err
		}
		current := trade.Reconcile(ref, src.LineItems(), existing)
		if current.PendingQuantity == 0 {
			return shared.NewInvalidStateError("NOTHING_PENDING",
				fmt.Sprintf("All items of %s %s have already been dispatched", ref.Type.Label(), ref.Number))
		}
		items, err := trade.PlanDispatch(src.LineItems(), current, lines)
		if err != nil {
			return err
		}

		number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityDispatch)
		if err != nil {
			return err
		}
		dispatch, err := trade.NewDispatch(number, ref, current.LastSequence+1, items, toShippingInfo(req.Shipping))
		if err != nil {
			return err
		}
		dispatch.CreatedBy = req.CreatedBy

		after := trade.Reconcile(ref, src.LineItems(), append(existing, *dispatch))
		dispatch.IsPartial = after.DispatchStatus != trade.DispatchStatusFull

		if err := repos.Dispatches().Create(ctx, dispatch); err != nil {
			return err
		}
		if err := src.ApplyReconciliation(after); err != nil {
			return err
		}
		if err := saveDispatchSource(ctx, repos, src); err != nil {
			return err
		}

		events.collect(dispatch, src)
		response = CreateDispatchResponse{
			Dispatch:  ToDispatchResponse(dispatch),
			Reconcile: toReconcileResponse(src, after),
		}
		partial = dispatch.IsPartial
		quantity = dispatch.TotalQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIdentifierAllocated(ctx, string(sequence.EntityDispatch))
	s.metrics.RecordDispatchCreated(ctx, req.SourceType, quantity, partial)
	s.logger.Info("Dispatch created",
		zap.String("dispatch_number", response.Dispatch.DispatchNumber),
		zap.String("source_type", string(req.SourceType)),
		zap.String("source_number", response.Reconcile.Source.Number),
		zap.Int("quantity", quantity),
		zap.String("dispatch_status", response.Reconcile.DispatchStatus),
	)
	return &response, nil
}

// RepairDispatchInconsistency removes a dispatch that should not exist and
// reconciles its source. Invoiced dispatches are never removed.
func (s *ReconciliationService) RepairDispatchInconsistency(ctx context.Context, sourceType trade.DocumentType, sourceID, dispatchID uuid.UUID, actor string) (*ReconcileResponse, error) {
	if !sourceType.IsDispatchSource() {
		return nil, shared.NewInvalidInputError("INVALID_SOURCE",
			fmt.Sprintf("Dispatches cannot be raised against a %s", sourceType.Label()))
	}

	var response ReconcileResponse
	var removed string
	err := s.mutate(ctx, "repair_dispatch", sourceType, sourceID, func(repos TransactionalRepositories, events *eventBatch) error {
		dispatch, err := repos.Dispatches().FindByID(ctx, dispatchID)
		if err != nil {
			return err
		}
		if dispatch.SourceType != sourceType || dispatch.SourceID != sourceID {
			return shared.NewInvalidInputError("DISPATCH_SOURCE_MISMATCH",
				fmt.Sprintf("Dispatch %s does not belong to this %s", dispatch.DispatchNumber, sourceType.Label()))
		}
		if err := dispatch.CanBeRemoved(); err != nil {
			return err
		}
		src, err := loadDispatchSource(ctx, repos, sourceType, sourceID)
		if err != nil {
			return err
		}
		if order, ok := src.(*trade.Order); ok && order.Status == trade.OrderStatusDelivered {
			return shared.NewInvalidStateError("ORDER_DELIVERED",
				fmt.Sprintf("Order %s has been delivered; its dispatches cannot be removed", order.OrderNumber))
		}

		if err := repos.Dispatches().Delete(ctx, dispatch.ID); err != nil {
			return err
		}
		result, err := s.reconcile(ctx, repos, src)
		if err != nil {
			return err
		}
		if err := saveDispatchSource(ctx, repos, src); err != nil {
			return err
		}

		dispatch.AddDomainEvent(trade.NewDispatchRemovedEvent(dispatch, actor))
		events.collect(dispatch, src)
		response = toReconcileResponse(src, result)
		removed = dispatch.DispatchNumber
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDispatchRepaired(ctx, sourceType)
	s.logger.Warn("Dispatch removed by repair",
		zap.String("dispatch_number", removed),
		zap.String("source_type", string(sourceType)),
		zap.String("source_number", response.Source.Number),
		zap.String("actor", actor),
		zap.Int("dispatched", response.DispatchedQuantity),
		zap.String("dispatch_status", response.DispatchStatus),
	)
	return &response, nil
}

// UpdateDispatchTracking changes the shipment status or carrier details of a dispatch
func (s *ReconciliationService) UpdateDispatchTracking(ctx context.Context, req UpdateDispatchTrackingRequest) (*DispatchResponse, error) {
	var response DispatchResponse
	err := s.mutate(ctx, "update_dispatch_tracking", trade.DocumentDispatch, req.DispatchID, func(repos TransactionalRepositories, events *eventBatch) error {
		dispatch, err := repos.Dispatches().FindByID(ctx, req.DispatchID)
		if err != nil {
			return err
		}
		if err := dispatch.UpdateTracking(trade.ShipmentStatus(req.Status), req.Carrier, req.TrackingNumber); err != nil {
			return err
		}
		if err := repos.Dispatches().SaveWithLock(ctx, dispatch); err != nil {
			return err
		}
		events.collect(dispatch)
		response = ToDispatchResponse(dispatch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetDispatch retrieves a dispatch by ID
func (s *ReconciliationService) GetDispatch(ctx context.Context, id uuid.UUID) (*DispatchResponse, error) {
	dispatch, err := s.repos.Dispatches.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToDispatchResponse(dispatch)
	return &response, nil
}

// ListDispatches returns the dispatches of a source ordered by sequence
func (s *ReconciliationService) ListDispatches(ctx context.Context, sourceType trade.DocumentType, sourceID uuid.UUID) ([]DispatchResponse, error) {
	if !sourceType.IsDispatchSource() {
		return nil, shared.NewInvalidInputError("INVALID_SOURCE",
			fmt.Sprintf("Dispatches cannot be raised against a %s", sourceType.Label()))
	}
	dispatches, err := s.repos.Dispatches.FindBySource(ctx, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	return ToDispatchResponses(dispatches), nil
}

// CompleteDelivery marks a fully dispatched order DELIVERED once every one of
// its dispatches has been delivered. It reports whether the order changed.
func (s *ReconciliationService) CompleteDelivery(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var delivered bool
	err := s.mutate(ctx, "complete_delivery", trade.DocumentOrder, orderID, func(repos TransactionalRepositories, events *eventBatch) error {
		delivered = false
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != trade.OrderStatusDispatched {
			return nil
		}
		dispatches, err := repos.Dispatches().FindBySource(ctx, trade.DocumentOrder, orderID)
		if err != nil {
			return err
		}
		for i := range dispatches {
			if dispatches[i].Status != trade.ShipmentStatusDelivered {
				return nil
			}
		}
		if err := o.MarkDelivered(); err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		events.collect(o)
		delivered = true
		return nil
	})
	return delivered, err
}
