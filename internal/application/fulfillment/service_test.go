package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared/valueobject"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ MetricsRecorder = (*telemetry.FulfillmentMetrics)(nil)

// MockTransactionScope returns scripted errors instead of running a transaction
type MockTransactionScope struct {
	mock.Mock
}

func (m *MockTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(nil)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockDocumentLocker is a mock implementation of DocumentLocker
type MockDocumentLocker struct {
	mock.Mock
	released int
}

func (m *MockDocumentLocker) Lock(ctx context.Context, docType trade.DocumentType, id uuid.UUID) (func(context.Context) error, error) {
	args := m.Called(ctx, docType, id)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

// MockMetricsRecorder records only conflict retries; the rest are no-ops
type MockMetricsRecorder struct {
	noopMetrics
	mock.Mock
}

func (m *MockMetricsRecorder) RecordConflictRetry(ctx context.Context, operation string) {
	m.Called(ctx, operation)
}

// MockDispatchRepository is a mock implementation of trade.DispatchRepository
type MockDispatchRepository struct {
	mock.Mock
}

func (m *MockDispatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Dispatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Dispatch), args.Error(1)
}

func (m *MockDispatchRepository) FindBySource(ctx context.Context, sourceType trade.DocumentType, sourceID uuid.UUID) ([]trade.Dispatch, error) {
	args := m.Called(ctx, sourceType, sourceID)
	return args.Get(0).([]trade.Dispatch), args.Error(1)
}

func (m *MockDispatchRepository) Create(ctx context.Context, dispatch *trade.Dispatch) error {
	args := m.Called(ctx, dispatch)
	return args.Error(0)
}

func (m *MockDispatchRepository) SaveWithLock(ctx context.Context, dispatch *trade.Dispatch) error {
	args := m.Called(ctx, dispatch)
	return args.Error(0)
}

func (m *MockDispatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()
	conflict := shared.NewConflictError("CONCURRENT_MODIFICATION", "order was modified")

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, fastRetry(3), zap.NewNop(), "create_dispatch", func() error {
			calls++
			return conflict
		})
		assert.Equal(t, 3, calls)
		assert.True(t, shared.IsConflict(err))
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, fastRetry(3), zap.NewNop(), "create_dispatch", func() error {
			calls++
			return shared.NewInvalidInputError("QUANTITY_EXCEEDED", "too many")
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, fastRetry(3), zap.NewNop(), "record_payment", func() error {
			calls++
			if calls == 1 {
				return conflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, RetryConfig{}, zap.NewNop(), "reconcile", func() error {
			calls++
			return conflict
		})
		assert.Equal(t, 1, calls)
		assert.Error(t, err)
	})
}

func TestServiceBase_Mutate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	conflict := shared.NewConflictError("CONCURRENT_MODIFICATION", "order was modified")
	ref := trade.SourceRef{Type: trade.DocumentOrder, ID: id, Number: "ORD-00007"}

	t.Run("retries the transaction and publishes once", func(t *testing.T) {
		scope := new(MockTransactionScope)
		scope.On("Execute", mock.Anything).Return(conflict).Once()
		scope.On("Execute", mock.Anything).Return(nil).Once()

		publisher := new(MockEventPublisher)
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1
		})).Return(nil).Once()

		locker := new(MockDocumentLocker)
		locker.On("Lock", mock.Anything, trade.DocumentOrder, id).Return(nil).Once()

		metrics := new(MockMetricsRecorder)
		metrics.On("RecordConflictRetry", mock.Anything, "reconcile").Once()

		base := newServiceBase(ServiceConfig{TxScope: scope})
		base.SetRetryConfig(fastRetry(3))
		base.SetEventPublisher(publisher)
		base.SetLocker(locker)
		base.SetMetrics(metrics)

		err := base.mutate(ctx, "reconcile", trade.DocumentOrder, id, func(_ TransactionalRepositories, events *eventBatch) error {
			events.events = append(events.events, trade.NewDocumentStatusChangedEvent(ref, "OPEN", "DISPATCHED"))
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, locker.released)
		scope.AssertExpectations(t)
		publisher.AssertExpectations(t)
		locker.AssertExpectations(t)
		metrics.AssertExpectations(t)
	})

	t.Run("failed mutation publishes nothing", func(t *testing.T) {
		scope := new(MockTransactionScope)
		scope.On("Execute", mock.Anything).Return(nil)
		publisher := new(MockEventPublisher)

		base := newServiceBase(ServiceConfig{TxScope: scope})
		base.SetEventPublisher(publisher)

		err := base.mutate(ctx, "change_status", trade.DocumentOrder, id, func(_ TransactionalRepositories, events *eventBatch) error {
			events.events = append(events.events, trade.NewDocumentStatusChangedEvent(ref, "OPEN", "CANCELLED"))
			return shared.NewInvalidStateError("ORDER_HAS_DISPATCHES", "shipped")
		})

		require.ErrorIs(t, err, shared.ErrInvalidState)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("lock failure skips the transaction", func(t *testing.T) {
		scope := new(MockTransactionScope)
		locker := new(MockDocumentLocker)
		lockErr := errors.New("lock held by another worker")
		locker.On("Lock", mock.Anything, trade.DocumentOrder, id).Return(lockErr)

		base := newServiceBase(ServiceConfig{TxScope: scope})
		base.SetLocker(locker)

		err := base.mutate(ctx, "reconcile", trade.DocumentOrder, id, func(TransactionalRepositories, *eventBatch) error {
			return nil
		})

		require.ErrorIs(t, err, lockErr)
		scope.AssertNotCalled(t, "Execute", mock.Anything)
	})

	t.Run("publisher failure does not fail the call", func(t *testing.T) {
		scope := new(MockTransactionScope)
		scope.On("Execute", mock.Anything).Return(nil)
		publisher := new(MockEventPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus closed"))

		base := newServiceBase(ServiceConfig{TxScope: scope})
		base.SetEventPublisher(publisher)

		err := base.inTx(ctx, func(_ TransactionalRepositories, events *eventBatch) error {
			events.events = append(events.events, trade.NewDocumentStatusChangedEvent(ref, "PENDING", "OPEN"))
			return nil
		})
		assert.NoError(t, err)
		publisher.AssertExpectations(t)
	})
}

func TestDispatchDeliveredHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("subscribes to status changes", func(t *testing.T) {
		h := NewDispatchDeliveredHandler(nil, new(MockDispatchRepository), zap.NewNop())
		assert.Equal(t, []string{trade.EventTypeDocumentStatusChanged}, h.EventTypes())
	})

	t.Run("rejects other event types", func(t *testing.T) {
		h := NewDispatchDeliveredHandler(nil, new(MockDispatchRepository), zap.NewNop())
		created := trade.NewDocumentCreatedEvent(trade.SourceRef{Type: trade.DocumentOrder, ID: uuid.New()}, uuid.New(), decimal.Zero)

		err := h.Handle(ctx, created)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})

	t.Run("ignores non-dispatch documents", func(t *testing.T) {
		repo := new(MockDispatchRepository)
		h := NewDispatchDeliveredHandler(nil, repo, zap.NewNop())
		event := trade.NewDocumentStatusChangedEvent(trade.SourceRef{Type: trade.DocumentOrder, ID: uuid.New()}, "DISPATCHED", "DELIVERED")

		require.NoError(t, h.Handle(ctx, event))
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("ignores dispatches still in transit", func(t *testing.T) {
		repo := new(MockDispatchRepository)
		h := NewDispatchDeliveredHandler(nil, repo, zap.NewNop())
		event := trade.NewDocumentStatusChangedEvent(trade.SourceRef{Type: trade.DocumentDispatch, ID: uuid.New()}, "DISPATCHED", "IN_TRANSIT")

		require.NoError(t, h.Handle(ctx, event))
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("ignores proforma invoice dispatches", func(t *testing.T) {
		repo := new(MockDispatchRepository)
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(&trade.Dispatch{
			SourceType:     trade.DocumentProformaInvoice,
			SourceID:       uuid.New(),
			DispatchNumber: "DSP-00004",
		}, nil)
		h := NewDispatchDeliveredHandler(nil, repo, zap.NewNop())
		event := trade.NewDocumentStatusChangedEvent(trade.SourceRef{Type: trade.DocumentDispatch, ID: id}, "IN_TRANSIT", "DELIVERED")

		require.NoError(t, h.Handle(ctx, event))
		repo.AssertExpectations(t)
	})

	t.Run("wraps lookup errors", func(t *testing.T) {
		repo := new(MockDispatchRepository)
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("DISPATCH_NOT_FOUND", "gone"))
		h := NewDispatchDeliveredHandler(nil, repo, zap.NewNop())
		event := trade.NewDocumentStatusChangedEvent(trade.SourceRef{Type: trade.DocumentDispatch, ID: id}, "IN_TRANSIT", "DELIVERED")

		err := h.Handle(ctx, event)
		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, err.Error(), "failed to load dispatch")
	})
}

func TestPricingDefaults_Resolve(t *testing.T) {
	rates, err := valueobject.NewRateTable(valueobject.USD, map[string]float64{"INR": 83.1})
	require.NoError(t, err)

	t.Run("falls back to defaults", func(t *testing.T) {
		in, err := PricingDefaults{TaxRate: decimal.NewFromInt(18)}.resolve(PricingRequest{})
		require.NoError(t, err)
		assert.True(t, in.TaxRate.Equal(decimal.NewFromInt(18)))
		assert.True(t, in.ShippingCharges.IsZero())
		assert.Equal(t, "USD", in.Currency)
		assert.True(t, in.ExchangeRate.Equal(decimal.NewFromInt(1)))
	})

	t.Run("request values win", func(t *testing.T) {
		tax := decimal.NewFromInt(5)
		shipping := decimal.NewFromInt(40)
		rate := decimal.RequireFromString("82.5")
		in, err := PricingDefaults{TaxRate: decimal.NewFromInt(18), Rates: rates}.resolve(PricingRequest{
			TaxRate:         &tax,
			ShippingCharges: &shipping,
			Currency:        "INR",
			ExchangeRate:    &rate,
		})
		require.NoError(t, err)
		assert.True(t, in.TaxRate.Equal(tax))
		assert.True(t, in.ShippingCharges.Equal(shipping))
		assert.True(t, in.ExchangeRate.Equal(rate))
	})

	t.Run("rate taken from the table", func(t *testing.T) {
		in, err := PricingDefaults{Rates: rates}.resolve(PricingRequest{Currency: "INR"})
		require.NoError(t, err)
		assert.True(t, in.ExchangeRate.Equal(decimal.NewFromFloat(83.1)))
	})

	t.Run("currency without a rate", func(t *testing.T) {
		_, err := PricingDefaults{Rates: rates}.resolve(PricingRequest{Currency: "EUR"})
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
