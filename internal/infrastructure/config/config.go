// Package config loads the service configuration from config.toml and HSA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported data sources for category and product records
const (
	DataSourceDatabase = "database"
	DataSourceMock     = "mock"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	SQLitePath      string `mapstructure:"sqlite_path"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"` // sqlite only; postgres is migrated with cmd/migrate
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HTTPConfig struct {
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	IdleTimeout         time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes      int           `mapstructure:"max_header_bytes"`
	MaxBodySize         int64         `mapstructure:"max_body_size"`
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests   int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow     time.Duration `mapstructure:"rate_limit_window"`
	CORSAllowOrigins    []string      `mapstructure:"cors_allow_origins"` // empty refuses cross-origin requests
	CORSAllowMethods    []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders    []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies      []string      `mapstructure:"trusted_proxies"`
	ServerTimingEnabled bool          `mapstructure:"server_timing_enabled"`
}

// CatalogConfig holds category management settings
type CatalogConfig struct {
	DataSource      string        `mapstructure:"data_source"`    // database or mock
	MockLatency     time.Duration `mapstructure:"mock_latency"`   // simulated round trip of the mock data source
	SeedDemoData    bool          `mapstructure:"seed_demo_data"` // seed an empty store with the demo catalog
	SearchDebounce  time.Duration `mapstructure:"search_debounce"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	StatsCacheTTL   time.Duration `mapstructure:"stats_cache_ttl"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"` // idle list sessions are closed after this long
}

type SchedulerConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval"`
	StatsRefreshInterval time.Duration `mapstructure:"stats_refresh_interval"`
}

// TelemetryConfig holds OpenTelemetry settings. DBLogFullSQL puts bound values
// into spans and is refused in production.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

var defaults = map[string]any{
	"app.name": "homeservices-admin",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             DriverPostgres,
	"database.sqlite_path":        "homeservices.db",
	"database.auto_migrate":       false,
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "homeservices",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":          15 * time.Second,
	"http.write_timeout":         15 * time.Second,
	"http.idle_timeout":          time.Minute,
	"http.max_header_bytes":      1 << 20,
	"http.max_body_size":         1 << 20,
	"http.rate_limit_enabled":    false,
	"http.rate_limit_requests":   100,
	"http.rate_limit_window":     time.Minute,
	"http.cors_allow_origins":    []string{},
	"http.cors_allow_methods":    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":    []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":       []string{},
	"http.server_timing_enabled": false,

	"catalog.data_source":       DataSourceDatabase,
	"catalog.mock_latency":      150 * time.Millisecond,
	"catalog.seed_demo_data":    false,
	"catalog.search_debounce":   300 * time.Millisecond,
	"catalog.default_page_size": 10,
	"catalog.max_page_size":     100,
	"catalog.stats_cache_ttl":   30 * time.Second,
	"catalog.session_ttl":       30 * time.Minute,

	"scheduler.enabled":                false,
	"scheduler.session_sweep_interval": time.Minute,
	"scheduler.stats_refresh_interval": 5 * time.Minute,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "homeservices-admin",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads the configuration. Precedence, highest first: HSA_ environment
// variables (HSA_DATABASE_PASSWORD overrides database.password), config.toml
// in the working directory or /app, built-in defaults. Empty variables are ignored.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	db, catalog := c.Database, c.Catalog

	if db.Driver != DriverPostgres && db.Driver != DriverSQLite {
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, db.Driver)
	}
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	}

	if catalog.DataSource != DataSourceDatabase && catalog.DataSource != DataSourceMock {
		return fmt.Errorf("catalog.data_source must be %q or %q, got %q", DataSourceDatabase, DataSourceMock, catalog.DataSource)
	}
	switch {
	case catalog.DefaultPageSize < 1:
		return errors.New("catalog.default_page_size must be positive")
	case catalog.MaxPageSize < catalog.DefaultPageSize:
		return fmt.Errorf("catalog.max_page_size (%d) cannot be smaller than catalog.default_page_size (%d)",
			catalog.MaxPageSize, catalog.DefaultPageSize)
	case catalog.SearchDebounce < 0 || catalog.MockLatency < 0:
		return errors.New("catalog.search_debounce and catalog.mock_latency cannot be negative")
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", r)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction refuses settings that are only acceptable on a developer machine
func (c *Config) validateProduction() error {
	if c.Catalog.DataSource == DataSourceMock {
		return errors.New("catalog.data_source cannot be 'mock' in production")
	}
	if c.Database.Driver == DriverPostgres {
		if c.Database.Password == "" {
			return errors.New("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database.sslmode cannot be 'disable' in production")
		}
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		return errors.New("http.cors_allow_origins cannot be '*' in production")
	}
	if c.Telemetry.DBLogFullSQL {
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}

// DSN returns the postgres connection URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
