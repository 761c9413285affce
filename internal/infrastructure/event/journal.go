package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JournalEntry is one committed domain event as kept in the event journal
type JournalEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventType     string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	AggregateType string    `gorm:"type:varchar(50);not null" json:"aggregate_type"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index" json:"aggregate_id"`
	Payload       string    `gorm:"type:jsonb;not null" json:"payload"`
	Actor         string    `gorm:"type:varchar(100)" json:"actor,omitempty"`
	RequestID     string    `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	OccurredAt    time.Time `gorm:"not null" json:"occurred_at"`
	RecordedAt    time.Time `gorm:"not null" json:"recorded_at"`
}

// TableName returns the journal table name
func (JournalEntry) TableName() string {
	return "fulfillment_event_journal"
}

// JournalRepository stores and reads journal entries
type JournalRepository interface {
	Append(ctx context.Context, entry *JournalEntry) error
	FindByAggregate(ctx context.Context, aggregateID uuid.UUID, limit int) ([]JournalEntry, error)
}

// GormJournalRepository implements JournalRepository using GORM
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GORM-based journal repository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

// Append inserts an entry. A redelivered event (same ID) is ignored.
func (r *GormJournalRepository) Append(ctx context.Context, entry *JournalEntry) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", entry.ID).
		FirstOrCreate(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to append %s to journal: %w", entry.EventType, result.Error)
	}
	return nil
}

// FindByAggregate lists the events of one aggregate, oldest first
func (r *GormJournalRepository) FindByAggregate(ctx context.Context, aggregateID uuid.UUID, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []JournalEntry
	if err := r.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

var _ JournalRepository = (*GormJournalRepository)(nil)
