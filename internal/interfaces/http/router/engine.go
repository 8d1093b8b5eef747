package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homeservices/backend/internal/infrastructure/config"
	"github.com/homeservices/backend/internal/infrastructure/logger"
	"github.com/homeservices/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineOptions configures NewEngine
type EngineOptions struct {
	HTTP    config.HTTPConfig
	Logger  *zap.Logger
	Tracing middleware.TracingConfig
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
	// RateLimiter is applied to every request when non-nil
	RateLimiter *middleware.RateLimiter
	// Health serves GET /health outside the versioned API
	Health gin.HandlerFunc
}

// NewEngine builds a gin engine with the middleware stack applied in order:
// request id, panic recovery, request logging, tracing, metrics, server timing,
// security headers, CORS, body limit and rate limiting.
func NewEngine(opts EngineOptions) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	metrics, err := middleware.HTTPMetrics(opts.Meter)
	if err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(opts.Tracing)...)
	engine.Use(metrics)
	if opts.HTTP.ServerTimingEnabled {
		engine.Use(middleware.ServerTiming())
	}
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.HTTP.CORSAllowOrigins
	if len(opts.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = opts.HTTP.CORSAllowMethods
	}
	if len(opts.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = opts.HTTP.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	engine.Use(middleware.CORSWithConfig(cors))

	engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	if opts.RateLimiter != nil {
		engine.Use(middleware.RateLimit(opts.RateLimiter))
	}

	if opts.Health != nil {
		engine.GET("/health", opts.Health)
	}
	return engine, nil
}
