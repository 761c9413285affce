// Package event delivers fulfillment domain events to in-process handlers
// after the originating transaction has committed.
package event

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InMemoryEventBus hands each event to its handlers synchronously, in
// subscription order. Handler errors and panics are logged per handler and
// never surface from Publish: the writes that raised the event are already
// committed.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{registry: NewHandlerRegistry(), logger: logger}
}

// Publish delivers events in order. It fails only when the bus is not running.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return ErrBusStopped
	}
	for _, ev := range events {
		b.deliver(ctx, ev)
	}
	return nil
}

func (b *InMemoryEventBus) deliver(ctx context.Context, ev shared.DomainEvent) {
	log := b.logger.With(
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_id", ev.AggregateID().String()),
	)
	for _, h := range b.registry.GetHandlers(ev.EventType()) {
		if err := b.invoke(ctx, h, ev); err != nil {
			var panicErr *HandlerPanicError
			if errors.As(err, &panicErr) {
				log.Error("handler panicked", zap.Any("panic", panicErr.Value))
			}
			log.Error("handler failed to process event", zap.Error(err))
		}
	}
}

// Subscribe registers a handler. Without explicit event types the handler's
// own EventTypes are used; an empty list subscribes to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start opens the bus for Publish
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Len()))
	return nil
}

// Stop makes further Publish calls fail with ErrBusStopped
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// invoke runs one handler inside a span, converting a panic into a
// HandlerPanicError
func (b *InMemoryEventBus) invoke(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "event."+ev.EventType(),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, ev.AggregateType()),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, ev.AggregateID().String()),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{EventType: ev.EventType(), Value: r}
		}
		telemetry.RecordError(span, err)
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
