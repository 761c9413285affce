// Package integration runs the fulfillment services against a real
// PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/logger"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// One migrated postgres serves every test in the package. It is started on
// first use and terminated by TerminateSharedContainer from TestMain.
var shared struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	dsn       string
	err       error
}

// TestDB is a connection pool to the shared, migrated database
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	t     *testing.T
}

// TerminateSharedContainer stops the shared postgres, if one was started
func TerminateSharedContainer() {
	if shared.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = shared.container.Terminate(ctx)
	shared.container = nil
}

func bootPostgres() {
	ctx := context.Background()
	shared.container, shared.err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fulfillment_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("avp_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if shared.err != nil {
		return
	}
	shared.dsn, shared.err = shared.container.ConnectionString(ctx, "sslmode=disable")
	if shared.err != nil {
		return
	}

	sqlDB, err := sql.Open("postgres", shared.dsn)
	if err != nil {
		shared.err = err
		return
	}
	defer sqlDB.Close()
	m, err := migration.New(sqlDB, findMigrationsPath(), zap.NewNop())
	if err != nil {
		shared.err = fmt.Errorf("create migrator: %w", err)
		return
	}
	if err := m.Up(); err != nil {
		shared.err = fmt.Errorf("migrate up: %w", err)
		return
	}
	missing, err := migration.VerifySchema(ctx, sqlDB)
	if err == nil && len(missing) > 0 {
		err = fmt.Errorf("tables missing after migration: %v", missing)
	}
	shared.err = err
}

// NewSharedTestDB opens a pool to the shared database. Callers that need an
// empty schema call CleanTables.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	shared.once.Do(bootPostgres)
	require.NoError(t, shared.err, "postgres test container")

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(shared.dsn), &gorm.Config{
		Logger:         logger.NewGormLogger(zaptest.NewLogger(t), level),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	// enough connections for the concurrency tests to actually race
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{DB: db, SqlDB: sqlDB, t: t}
}

// CleanTables empties the fulfillment tables, counters included
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(migration.FulfillmentTables, ", "))
	require.NoError(tdb.t, tdb.DB.Exec(stmt).Error, "truncate fulfillment tables")
}

// findMigrationsPath walks up from this file to the module's migrations directory
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "migrations"
	}
	dir := filepath.Dir(filename)
	for i := 0; i < 4; i++ {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return "migrations"
}
