package persistence

import (
	"context"
	"fmt"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDispatchRepository implements DispatchRepository using GORM
type GormDispatchRepository struct {
	db *gorm.DB
}

// NewGormDispatchRepository creates a new GormDispatchRepository
func NewGormDispatchRepository(db *gorm.DB) *GormDispatchRepository {
	return &GormDispatchRepository{db: db}
}

// FindByID finds a dispatch by ID
func (r *GormDispatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Dispatch, error) {
	return findOne[trade.Dispatch](ctx, r.db, "DISPATCH_NOT_FOUND", "Dispatch", "id = ?", id)
}

// FindBySource returns every dispatch of a source ordered by dispatch_sequence
func (r *GormDispatchRepository) FindBySource(ctx context.Context, sourceType trade.DocumentType, sourceID uuid.UUID) ([]trade.Dispatch, error) {
	var dispatches []trade.Dispatch
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("dispatch_sequence ASC").
		Find(&dispatches).Error; err != nil {
		return nil, err
	}
	return dispatches, nil
}

// Create inserts a new dispatch. The unique (source_type, source_id,
// dispatch_sequence) index turns a concurrent duplicate into a Conflict.
func (r *GormDispatchRepository) Create(ctx context.Context, dispatch *trade.Dispatch) error {
	return create(ctx, r.db, dispatch, "dispatch")
}

// SaveWithLock saves tracking metadata with optimistic locking
func (r *GormDispatchRepository) SaveWithLock(ctx context.Context, dispatch *trade.Dispatch) error {
	return saveWithLock(ctx, r.db, dispatch, "dispatch")
}

// Delete hard-deletes a dispatch
func (r *GormDispatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&trade.Dispatch{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("DISPATCH_NOT_FOUND", fmt.Sprintf("Dispatch %s not found", id))
	}
	return nil
}

// Ensure GormDispatchRepository implements DispatchRepository
var _ trade.DispatchRepository = (*GormDispatchRepository)(nil)
