package fulfillment

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
)

// DocumentLocker serializes mutations of one document across service
// instances. Optimistic version checks remain the source of truth; the lock
// only reduces how often they fire under contention.
type DocumentLocker interface {
	// Lock acquires the lock for a document and returns its release function
	Lock(ctx context.Context, docType trade.DocumentType, id uuid.UUID) (unlock func(context.Context) error, err error)
}

// NoopLocker is the default DocumentLocker; it never blocks
type NoopLocker struct{}

// Lock returns immediately
func (NoopLocker) Lock(context.Context, trade.DocumentType, uuid.UUID) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

var _ DocumentLocker = NoopLocker{}
