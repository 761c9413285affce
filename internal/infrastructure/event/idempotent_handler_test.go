package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	evt := statusChanged(trade.DocumentDispatch, "DELIVERED")
	id := evt.EventID().String()
	ttl := shared.DefaultIdempotencyConfig().TTL

	t.Run("first delivery is processed and a duplicate skipped", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		store.On("MarkProcessed", ctx, id, ttl).Return(true, nil).Once()
		store.On("MarkProcessed", ctx, id, ttl).Return(false, nil).Once()
		inner := &recordingHandler{eventTypes: []string{trade.EventTypeDocumentStatusChanged}}
		h := NewIdempotentHandler(inner, store, zap.NewNop())

		require.NoError(t, h.Handle(ctx, evt))
		require.NoError(t, h.Handle(ctx, evt))

		assert.Len(t, inner.types(), 1)
		assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
		assert.Equal(t, inner.EventTypes(), h.EventTypes())
		store.AssertExpectations(t)
	})

	t.Run("store failure still processes", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		store.On("MarkProcessed", ctx, id, ttl).Return(false, errors.New("redis down"))
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, store, zap.NewNop())

		require.NoError(t, h.Handle(ctx, evt))
		assert.Len(t, inner.types(), 1)
	})

	t.Run("handler error releases the claim", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		store.On("MarkProcessed", ctx, id, ttl).Return(true, nil)
		store.On("Release", ctx, id).Return(nil).Once()
		h := NewIdempotentHandler(&recordingHandler{err: errors.New("order locked")}, store, zap.NewNop())

		assert.Error(t, h.Handle(ctx, evt))
		assert.Equal(t, int64(1), h.Stats().EventsFailed)
		store.AssertExpectations(t)
	})

	t.Run("handler name namespaces the claim", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		store.On("MarkProcessed", ctx, "dispatch_delivered:"+id, ttl).Return(true, nil).Once()
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, store, zap.NewNop(), WithHandlerName("dispatch_delivered"))

		require.NoError(t, h.Handle(ctx, evt))
		assert.Len(t, inner.types(), 1)
		store.AssertExpectations(t)
	})

	t.Run("failure without a claim releases nothing", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		store.On("MarkProcessed", ctx, id, ttl).Return(false, errors.New("redis down"))
		h := NewIdempotentHandler(&recordingHandler{err: errors.New("order locked")}, store, zap.NewNop())

		assert.Error(t, h.Handle(ctx, evt))
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("disabled bypasses the store", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, store, zap.NewNop(),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

		require.NoError(t, h.Handle(ctx, evt))
		require.NoError(t, h.Handle(ctx, evt))
		assert.Len(t, inner.types(), 2)
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}
