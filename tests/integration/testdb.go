// Package integration runs the catalog against a real PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/homeservices/backend/internal/infrastructure/migration"
	"github.com/homeservices/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// postgresImage is the server the catalog migrations are written against
const postgresImage = "postgres:16-alpine"

// pg is one container shared by every test in the package; it is migrated once on start.
var pg struct {
	sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a connection to the migrated, freshly truncated test database
type TestDB struct {
	DB  *gorm.DB
	DSN string
}

// NewTestDB connects to the shared container, starting it on first use, and truncates the catalog tables.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := sharedDSN(t)
	db := openGorm(t, dsn)
	require.NoError(t, db.Exec("TRUNCATE TABLE products, categories CASCADE").Error, "truncate catalog tables")
	return &TestDB{DB: db, DSN: dsn}
}

func sharedDSN(t *testing.T) string {
	t.Helper()

	pg.Lock()
	defer pg.Unlock()
	if pg.container != nil {
		return pg.dsn
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("catalog_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")

	migrateSchema(t, openGorm(t, dsn))
	pg.container, pg.dsn = container, dsn
	return dsn
}

// openGorm opens a small pool that is closed when t finishes. TEST_DB_DEBUG=1 echoes SQL.
func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	mode := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		mode = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(mode)})
	require.NoError(t, err, "open gorm")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// migrateSchema applies the embedded migrations, the same set cmd/migrate ships
func migrateSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migrations.FS, nil)
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")
}

// CleanupSharedContainer terminates the shared container; TestMain calls it after m.Run.
func CleanupSharedContainer() {
	pg.Lock()
	defer pg.Unlock()
	if pg.container == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = pg.container.Terminate(ctx)
	pg.container, pg.dsn = nil, ""
}
