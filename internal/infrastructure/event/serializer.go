package event

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
)

// EventSerializer encodes domain events for the journal and decodes them
// back into their concrete type, looked up by event type.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// NewFulfillmentSerializer knows every event the fulfillment core publishes
func NewFulfillmentSerializer() *EventSerializer {
	s := NewEventSerializer()
	registerAs[trade.DocumentCreatedEvent](s, trade.EventTypeDocumentCreated)
	registerAs[trade.DocumentStatusChangedEvent](s, trade.EventTypeDocumentStatusChanged)
	registerAs[trade.DocumentConvertedEvent](s, trade.EventTypeDocumentConverted)
	registerAs[trade.DispatchCreatedEvent](s, trade.EventTypeDispatchCreated)
	registerAs[trade.DispatchRemovedEvent](s, trade.EventTypeDispatchRemoved)
	registerAs[trade.PaymentRecordedEvent](s, trade.EventTypePaymentRecorded)
	for _, t := range []string{
		trade.EventTypePaymentRecordSubmitted,
		trade.EventTypePaymentRecordVerified,
		trade.EventTypePaymentRecordRejected,
	} {
		registerAs[trade.PaymentRecordEvent](s, t)
	}
	registerAs[trade.PaymentRecordEditedEvent](s, trade.EventTypePaymentRecordEdited)
	return s
}

// registerAs binds eventType to *T
func registerAs[T any, PT interface {
	*T
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.Register(eventType, func() shared.DomainEvent { return PT(new(T)) })
}

// Register binds eventType to a constructor of empty events
func (s *EventSerializer) Register(eventType string, newEvent func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = newEvent
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into a fresh event of eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	newEvent, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := newEvent()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// RegisteredTypes lists the known event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.factories))
	for t := range s.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
