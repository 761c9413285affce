package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
)

// IdentifierAllocator hands out human-readable document numbers from atomic
// per-(series, year) counters. There is no scan of existing identifiers: two
// concurrent allocations always receive different values.
type IdentifierAllocator struct {
	counters sequence.CounterRepository
	now      func() time.Time
}

// NewIdentifierAllocator creates a new IdentifierAllocator
func NewIdentifierAllocator(counters sequence.CounterRepository) *IdentifierAllocator {
	return &IdentifierAllocator{
		counters: counters,
		now:      time.Now,
	}
}

// WithClock returns a copy of the allocator using the given clock for year scoping
func (a *IdentifierAllocator) WithClock(now func() time.Time) *IdentifierAllocator {
	return &IdentifierAllocator{counters: a.counters, now: now}
}

// Within returns a copy of the allocator bound to a transaction's counter
// repository. Numbers taken through it are released if the transaction rolls back.
func (a *IdentifierAllocator) Within(counters sequence.CounterRepository) *IdentifierAllocator {
	return &IdentifierAllocator{counters: counters, now: a.now}
}

// AllocateID consumes the next identifier of a series. yearScoped selects a
// per-calendar-year counter (PREFIX-YYYY-NNNN) instead of the global one.
func (a *IdentifierAllocator) AllocateID(ctx context.Context, entityType sequence.EntityType, yearScoped bool) (string, error) {
	def, err := sequence.Lookup(entityType)
	if err != nil {
		return "", err
	}
	scope := sequence.ScopeKey(yearScoped, a.now())
	value, err := a.counters.Next(ctx, entityType, scope)
	if err != nil {
		return "", fmt.Errorf("allocate %s identifier: %w", entityType, err)
	}
	return def.Format(scope, value), nil
}

// Allocate consumes the next identifier using the series' registered scoping
func (a *IdentifierAllocator) Allocate(ctx context.Context, entityType sequence.EntityType) (string, error) {
	def, err := sequence.Lookup(entityType)
	if err != nil {
		return "", err
	}
	return a.AllocateID(ctx, entityType, def.YearScoped)
}

// PeekNext returns the identifier the next allocation would produce without
// consuming it. Another caller may take it first.
func (a *IdentifierAllocator) PeekNext(ctx context.Context, entityType sequence.EntityType, yearScoped bool) (string, error) {
	def, err := sequence.Lookup(entityType)
	if err != nil {
		return "", err
	}
	scope := sequence.ScopeKey(yearScoped, a.now())
	current, err := a.counters.Current(ctx, entityType, scope)
	if err != nil {
		return "", fmt.Errorf("peek %s identifier: %w", entityType, err)
	}
	return def.Format(scope, current+1), nil
}
