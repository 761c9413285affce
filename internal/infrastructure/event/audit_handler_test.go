package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupJournalDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&JournalEntry{}))
	return db
}

func TestAuditHandler_JournalsEvents(t *testing.T) {
	repo := NewGormJournalRepository(setupJournalDB(t))
	handler := NewAuditHandler(repo, NewFulfillmentSerializer(), zap.NewNop())
	recordedAt := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return recordedAt }

	ctx, l := logger.WithRequestID(context.Background(), zap.NewNop(), "req-99")
	ctx, _ = logger.WithActor(ctx, l, "warehouse@avparts")

	orderID := uuid.New()
	ref := trade.SourceRef{Type: trade.DocumentOrder, ID: orderID, Number: "AVP-ORD-2026-0011"}
	first := trade.NewDocumentStatusChangedEvent(ref, "CONFIRMED", "PROCESSING")
	second := trade.NewDocumentStatusChangedEvent(ref, "PROCESSING", "DELIVERED")
	second.Timestamp = first.Timestamp.Add(time.Minute)

	require.NoError(t, handler.Handle(ctx, second))
	require.NoError(t, handler.Handle(ctx, first))
	// redelivery of the same event is absorbed
	require.NoError(t, handler.Handle(ctx, first))

	entries, err := repo.FindByAggregate(context.Background(), orderID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, first.EventID(), entries[0].ID)
	assert.Equal(t, second.EventID(), entries[1].ID)
	assert.Equal(t, "warehouse@avparts", entries[0].Actor)
	assert.Equal(t, "req-99", entries[0].RequestID)
	assert.Equal(t, string(trade.DocumentOrder), entries[0].AggregateType)
	assert.True(t, entries[0].RecordedAt.Equal(recordedAt))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(entries[1].Payload), &payload))
	assert.Equal(t, "DELIVERED", payload["to_status"])
}

func TestAuditHandler_SubscribesToEverything(t *testing.T) {
	handler := NewAuditHandler(nil, NewFulfillmentSerializer(), zap.NewNop())
	assert.Empty(t, handler.EventTypes())
}

func TestGormJournalRepository_FindByAggregateEmpty(t *testing.T) {
	repo := NewGormJournalRepository(setupJournalDB(t))
	entries, err := repo.FindByAggregate(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
