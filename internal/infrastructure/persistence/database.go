package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/homeservices/backend/internal/infrastructure/config"
	"github.com/homeservices/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the GORM handle the catalog repositories share
type Database struct {
	DB     *gorm.DB
	Driver string
}

// Option adjusts the gorm.Config NewDatabase opens with
type Option func(*gorm.Config)

// WithLogger replaces the silent default, typically with logger.NewGormLogger
func WithLogger(l logger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

// NewDatabase opens and pings the configured driver.
// Postgres schema is owned by the SQL migrations; cfg.AutoMigrate builds it from the models instead.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	dialector, err := dialect(cfg, gormCfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	d := &Database{DB: db, Driver: cfg.Driver}
	if d.Driver == "" {
		d.Driver = config.DriverPostgres
	}
	pool, err := d.sqlDB()
	if err != nil {
		return nil, err
	}
	configurePool(pool, cfg)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.Driver, err)
	}
	if cfg.AutoMigrate {
		if err := d.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func dialect(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	case config.DriverPostgres, "":
		gormCfg.PrepareStmt = true
		return postgres.Open(cfg.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func configurePool(pool *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == config.DriverSQLite {
		// one writer at a time, and a :memory: database lives only as long as its connection
		pool.SetMaxOpenConns(1)
		return
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) sqlDB() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return pool, nil
}

// AutoMigrate creates or alters the catalog tables to match the persistence models
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate catalog tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	pool, err := d.sqlDB()
	if err != nil {
		return err
	}
	return pool.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.sqlDB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// Stats reports the connection pool
func (d *Database) Stats() (sql.DBStats, error) {
	pool, err := d.sqlDB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return pool.Stats(), nil
}

// Transaction runs fn in a transaction that commits when fn returns nil
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(fn)
}
