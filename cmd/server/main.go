// Command server runs the home services admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/homeservices/backend/internal/application/catalog"
	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/cache"
	"github.com/homeservices/backend/internal/infrastructure/config"
	"github.com/homeservices/backend/internal/infrastructure/event"
	"github.com/homeservices/backend/internal/infrastructure/logger"
	"github.com/homeservices/backend/internal/infrastructure/persistence"
	"github.com/homeservices/backend/internal/infrastructure/scheduler"
	"github.com/homeservices/backend/internal/infrastructure/telemetry"
	"github.com/homeservices/backend/internal/interfaces/http/handler"
	"github.com/homeservices/backend/internal/interfaces/http/middleware"
	"github.com/homeservices/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting home services admin API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("data_source", cfg.Catalog.DataSource),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

// dataSource is the repository pair the catalog runs on. db is nil for the mock source.
type dataSource struct {
	categories catalog.CategoryRepository
	products   catalog.ProductRepository
	db         *persistence.Database
}

func (d *dataSource) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	meter := providers.Meter("github.com/homeservices/backend")
	catalogMetrics, err := telemetry.NewCatalogMetrics(meter)
	if err != nil {
		return fmt.Errorf("init catalog metrics: %w", err)
	}

	source, err := openDataSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	statsCache, err := cache.NewStatsCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).Create(ctx)
	if err != nil {
		return fmt.Errorf("init stats cache: %w", err)
	}
	defer func() {
		_ = statsCache.Close()
	}()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(catalogapp.NewStatsCacheInvalidator(statsCache, log))

	categoryService := catalogapp.NewCategoryService(source.categories, source.products,
		catalogapp.WithEventPublisher(bus),
		catalogapp.WithStatsCache(statsCache, cfg.Catalog.StatsCacheTTL),
		catalogapp.WithMetrics(catalogMetrics),
		catalogapp.WithListLimits(catalogapp.ListLimits{
			DefaultPageSize: cfg.Catalog.DefaultPageSize,
			MaxPageSize:     cfg.Catalog.MaxPageSize,
		}),
		catalogapp.WithDataSource(cfg.Catalog.DataSource),
		catalogapp.WithLogger(log),
	)
	sessions := catalogapp.NewSessionManager(categoryService, catalogapp.SessionConfig{
		Debounce: cfg.Catalog.SearchDebounce,
		TTL:      cfg.Catalog.SessionTTL,
		Limits: catalogapp.ListLimits{
			DefaultPageSize: cfg.Catalog.DefaultPageSize,
			MaxPageSize:     cfg.Catalog.MaxPageSize,
		},
	}, catalogMetrics, log)
	defer sessions.CloseAll()

	housekeeping, err := newHousekeeping(cfg.Scheduler, categoryService, sessions, log)
	if err != nil {
		return err
	}
	if housekeeping != nil {
		if err := housekeeping.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Close()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	var pinger handler.Pinger
	if source.db != nil {
		pinger = source.db
	}
	engine, err := router.NewEngine(router.EngineOptions{
		HTTP:   cfg.HTTP,
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     providers.TracingEnabled(),
		},
		Meter:       meter,
		RateLimiter: rateLimiter,
		Health:      handler.NewSystemHandler(cfg.Catalog.DataSource, pinger).Health,
	})
	if err != nil {
		return fmt.Errorf("build http engine: %w", err)
	}

	catalogRoutes := router.NewCatalogRoutes(
		handler.NewCategoryHandler(categoryService),
		handler.NewListSessionHandler(sessions),
	)
	router.NewRouter(engine, router.WithAPIVersion("v1")).Register(catalogRoutes).Setup()
	log.Debug("Routes registered", zap.Strings("routes", catalogRoutes.List()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErrs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("http server: %w", err))
	}
	if housekeeping != nil {
		if err := housekeeping.Stop(shutdownCtx); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("scheduler: %w", err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("event bus: %w", err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("telemetry: %w", err))
	}
	if err := errors.Join(shutdownErrs...); err != nil {
		return err
	}

	log.Info("Server exited")
	return nil
}

// openDataSource opens the configured database, or an in-memory store with simulated
// latency when the mock data source is selected. The mock store is always seeded.
func openDataSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (*dataSource, error) {
	if cfg.Catalog.DataSource == config.DataSourceMock {
		store := persistence.NewMemoryStore(cfg.Catalog.MockLatency)
		if err := persistence.SeedDemoData(ctx, store.Categories(), store.Products(), time.Now().Add(-24*time.Hour)); err != nil {
			return nil, fmt.Errorf("seed mock data: %w", err)
		}
		log.Info("Using mock data source", zap.Duration("latency", cfg.Catalog.MockLatency))
		return &dataSource{categories: store.Categories(), products: store.Products()}, nil
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, err
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register db tracing: %w", err)
	}

	if cfg.Database.Driver == config.DriverSQLite && cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	source := &dataSource{
		categories: persistence.NewGormCategoryRepository(db.DB),
		products:   persistence.NewGormProductRepository(db.DB),
		db:         db,
	}
	if cfg.Catalog.SeedDemoData {
		if err := seedIfEmpty(ctx, source, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return source, nil
}

func seedIfEmpty(ctx context.Context, source *dataSource, log *zap.Logger) error {
	existing, err := source.categories.Count(ctx, shared.Filter{})
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if existing > 0 {
		log.Info("Skipping demo seed, catalog is not empty", zap.Int64("categories", existing))
		return nil
	}
	if err := persistence.SeedDemoData(ctx, source.categories, source.products, time.Now().Add(-24*time.Hour)); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	log.Info("Seeded demo catalog")
	return nil
}

// newHousekeeping schedules idle list-session cleanup and dashboard stats warm-up.
// It returns nil when the scheduler is disabled.
func newHousekeeping(cfg config.SchedulerConfig, service *catalogapp.CategoryService, sessions *catalogapp.SessionManager, log *zap.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	s := scheduler.NewScheduler(log)
	if err := s.Every(scheduler.Task{
		Name:     "list_session_sweep",
		Interval: cfg.SessionSweepInterval,
		Run:      sessions.SweepIdle,
	}); err != nil {
		return nil, err
	}
	if err := s.Every(scheduler.Task{
		Name:     "dashboard_stats_refresh",
		Interval: cfg.StatsRefreshInterval,
		Run: func(ctx context.Context) error {
			_, err := service.RefreshDashboardStats(ctx)
			return err
		},
	}); err != nil {
		return nil, err
	}
	return s, nil
}
