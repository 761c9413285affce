// Package fulfillment implements the order-fulfillment operations: document
// numbering, dispatch reconciliation, payment ledgers and document conversion.
package fulfillment

import (
	"context"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceConfig carries the collaborators shared by every fulfillment service
type ServiceConfig struct {
	TxScope   TransactionScope
	Repos     Repositories
	Allocator *IdentifierAllocator
	Logger    *zap.Logger
}

// serviceBase holds the collaborators and optional hooks common to the services
type serviceBase struct {
	txScope   TransactionScope
	repos     Repositories
	allocator *IdentifierAllocator
	locker    DocumentLocker
	publisher shared.EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
	retry     RetryConfig
	now       func() time.Time
}

func newServiceBase(cfg ServiceConfig) serviceBase {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	allocator := cfg.Allocator
	if allocator == nil {
		allocator = NewIdentifierAllocator(cfg.Repos.Counters)
	}
	txScope := cfg.TxScope
	if txScope == nil {
		txScope = NewNoOpTransactionScope(cfg.Repos)
	}
	return serviceBase{
		txScope:   txScope,
		repos:     cfg.Repos,
		allocator: allocator,
		locker:    NoopLocker{},
		metrics:   noopMetrics{},
		logger:    log,
		retry:     DefaultRetryConfig(),
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *serviceBase) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the business metrics recorder
func (s *serviceBase) SetMetrics(m MetricsRecorder) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// SetLocker sets the per-document lock used around mutations
func (s *serviceBase) SetLocker(l DocumentLocker) {
	if l == nil {
		l = NoopLocker{}
	}
	s.locker = l
}

// SetRetryConfig sets the conflict retry bounds
func (s *serviceBase) SetRetryConfig(cfg RetryConfig) {
	s.retry = cfg
}

// SetClock replaces the time source used for review and edit timestamps
func (s *serviceBase) SetClock(now func() time.Time) {
	s.now = now
	s.allocator = s.allocator.WithClock(now)
}

// withDocumentLock runs fn while holding the lock of one document
func (s *serviceBase) withDocumentLock(ctx context.Context, docType trade.DocumentType, id uuid.UUID, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, docType, id)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			s.logger.Warn("Failed to release document lock",
				zap.String("document_type", string(docType)),
				zap.String("document_id", id.String()),
				zap.Error(uerr),
			)
		}
	}()
	return fn()
}

// mutate runs one transactional attempt under the document lock, retrying the
// whole transaction when it loses an optimistic race. Events collected by the
// successful attempt are published after commit.
func (s *serviceBase) mutate(ctx context.Context, operation string, docType trade.DocumentType, id uuid.UUID, fn func(repos TransactionalRepositories, events *eventBatch) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", operation,
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, string(docType)),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()),
	)
	defer span.End()

	var batch eventBatch
	err := s.withDocumentLock(ctx, docType, id, func() error {
		return retryOnConflict(ctx, s.retry, s.logger, operation, func() error {
			batch.reset()
			err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
				return fn(repos, &batch)
			})
			if shared.IsConflict(err) {
				s.metrics.RecordConflictRetry(ctx, operation)
			}
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.publish(ctx, batch.events)
	return nil
}

// inTx runs fn in one transaction without retry or lock, then publishes
func (s *serviceBase) inTx(ctx context.Context, fn func(repos TransactionalRepositories, events *eventBatch) error) error {
	var batch eventBatch
	if err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return fn(repos, &batch)
	}); err != nil {
		return err
	}
	s.publish(ctx, batch.events)
	return nil
}

// publish hands events to the publisher. A failure is logged: the state
// change it describes is already committed.
func (s *serviceBase) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

// eventBatch collects the domain events of aggregates touched in one attempt
type eventBatch struct {
	events []shared.DomainEvent
}

func (b *eventBatch) reset() {
	b.events = b.events[:0]
}

// collect takes the pending events of the aggregates
func (b *eventBatch) collect(aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		if a == nil {
			continue
		}
		b.events = append(b.events, a.PullDomainEvents()...)
	}
}
