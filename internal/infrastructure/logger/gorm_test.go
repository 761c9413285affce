package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func observedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func stmt(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := observedGormLogger(gormlogger.Info)
	quiet, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, gormlogger.Warn, quiet.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	gormLog, recorded := observedGormLogger(gormlogger.Warn)
	ctx := context.Background()

	gormLog.Info(ctx, "suppressed %s", "info")
	gormLog.Warn(ctx, "pool exhausted after %d waits", 3)
	gormLog.Error(ctx, "connection reset")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "pool exhausted after 3 waits", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("error carries request and actor", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(gormlogger.Error)
		ctx, l := WithRequestID(context.Background(), zap.NewNop(), "req-7")
		ctx, _ = WithActor(ctx, l, "ops@avparts")

		gormLog.Trace(ctx, time.Now(), stmt("UPDATE orders SET version = 4"), errors.New("deadlock detected"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Error", logs[0].Message)
		fields := logs[0].ContextMap()
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "ops@avparts", fields["actor"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(gormlogger.Error)
		gormLog.Trace(context.Background(), time.Now(), stmt("SELECT * FROM dispatches"), gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow statement warns", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(gormlogger.Warn, WithSlowThreshold(10*time.Millisecond))
		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), stmt("SELECT * FROM counters FOR UPDATE"), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("info level traces every statement at debug", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(gormlogger.Info)
		gormLog.Trace(context.Background(), time.Now(), stmt("SELECT 1"), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(gormlogger.Silent)
		gormLog.Trace(context.Background(), time.Now(), stmt("SELECT 1"), errors.New("boom"))
		assert.Zero(t, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Warn,
		"DEBUG":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	}
	for level, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(level), level)
	}
}

func TestGormLogger_VersionMiss(t *testing.T) {
	gormLog, recorded := observedGormLogger(gormlogger.Warn)
	miss := func() (string, int64) {
		return `UPDATE "orders" SET "status"='OPEN',"version"=4 WHERE "id" = 'x' AND version = 3`, 0
	}
	gormLog.Trace(context.Background(), time.Now(), miss, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "Version check missed", logs[0].Message)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	assert.Equal(t, int64(0), logs[0].ContextMap()["rows"])
}
