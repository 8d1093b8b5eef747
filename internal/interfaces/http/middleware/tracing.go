// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures server spans. A nil TracerProvider uses the global one.
type TracingConfig struct {
	ServiceName    string
	Enabled        bool
	TracerProvider trace.TracerProvider
}

// untraced paths are probed too often to be worth a span
var untraced = map[string]bool{"/health": true}

// Tracing returns the handlers that open and annotate the server span of each request.
// It returns none when tracing is disabled.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool { return !untraced[r.URL.Path] }),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName, opts...), annotateSpan}
}

// annotateSpan adds the request id and marks the span failed for 4xx and 5xx answers
func annotateSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	if id := c.GetString(RequestIDKey); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}

	c.Next()

	if status := c.Writer.Status(); status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	if len(c.Errors) > 0 {
		span.SetAttributes(attribute.StringSlice("gin.errors", c.Errors.Errors()))
	}
}
