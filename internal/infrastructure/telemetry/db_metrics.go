package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics counts statements, times them, and observes the connection pool.
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slowThreshold  time.Duration
	logger         *zap.Logger
}

// NewDBMetrics creates the statement instruments and, when sqlDB is set,
// an observable gauge over its pool stats.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}

	m := &DBMetrics{slowThreshold: slowThreshold, logger: logger}
	var err error

	if m.queryTotal, err = NewCounter(meter, "avp_db_query_total", "Statements executed", "{queries}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "avp_db_query_duration_seconds",
		Description: "Statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "avp_db_slow_query_total", "Statements over the slow threshold", "{queries}"); err != nil {
		return nil, err
	}

	if sqlDB != nil {
		if _, err := meter.Int64ObservableGauge("avp_db_pool_connections",
			metric.WithDescription("Connection pool connections by state"),
			metric.WithUnit("{connections}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				stats := sqlDB.Stats()
				o.Observe(int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
				o.Observe(int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
				o.Observe(int64(stats.MaxOpenConnections), metric.WithAttributes(AttrDBState.String("max")))
				return nil
			}),
		); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordQuery records one statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// Register hooks the statement callbacks into db.
func (m *DBMetrics) Register(db *gorm.DB) error {
	for _, h := range statementHooks(db) {
		operation := operationFor(h.anchor)
		if err := h.before("avp_metrics:before_"+h.anchor, markQueryStart); err != nil {
			return err
		}
		if err := h.after("avp_metrics:after_"+h.anchor, func(tx *gorm.DB) {
			elapsed, ok := queryElapsed(tx)
			if !ok {
				return
			}
			op := operation
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			m.RecordQuery(tx.Statement.Context, op, tx.Statement.Table, elapsed)
		}); err != nil {
			return err
		}
	}
	m.logger.Debug("Database metrics registered", zap.Duration("slow_threshold", m.slowThreshold))
	return nil
}

func operationFor(anchor string) string {
	switch anchor {
	case "create":
		return "INSERT"
	case "query":
		return "SELECT"
	case "update":
		return "UPDATE"
	case "delete":
		return "DELETE"
	default:
		return ""
	}
}

// detectOperationType reads the verb of a raw statement
func detectOperationType(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	switch verb := strings.ToUpper(fields[0]); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return verb
	default:
		return "OTHER"
	}
}
