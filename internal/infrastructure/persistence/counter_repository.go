package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"gorm.io/gorm"
)

// SequenceCounter is the row behind one identifier series and scope
type SequenceCounter struct {
	EntityType string `gorm:"type:varchar(40);primaryKey"`
	ScopeKey   string `gorm:"type:varchar(10);primaryKey;default:''"`
	Value      int64  `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}

const nextCounterSQL = `INSERT INTO sequence_counters (entity_type, scope_key, value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (entity_type, scope_key)
DO UPDATE SET value = sequence_counters.value + 1, updated_at = excluded.updated_at
RETURNING value`

// GormCounterRepository implements sequence.CounterRepository with a single
// upsert statement, so concurrent callers are serialized by the row lock
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GormCounterRepository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// Next increments the counter for (entityType, scopeKey), creating it at 1
// when absent, and returns the new value
func (r *GormCounterRepository) Next(ctx context.Context, entityType sequence.EntityType, scopeKey string) (int64, error) {
	var value int64
	result := r.db.WithContext(ctx).
		Raw(nextCounterSQL, string(entityType), scopeKey, time.Now()).
		Scan(&value)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, errors.New("counter upsert returned no row")
	}
	return value, nil
}

// Current returns the current counter value, 0 when the counter does not exist
func (r *GormCounterRepository) Current(ctx context.Context, entityType sequence.EntityType, scopeKey string) (int64, error) {
	var counter SequenceCounter
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND scope_key = ?", string(entityType), scopeKey).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

// Ensure GormCounterRepository implements CounterRepository
var _ sequence.CounterRepository = (*GormCounterRepository)(nil)
