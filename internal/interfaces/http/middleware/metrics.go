package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPMetrics counts requests, records their latency and tracks requests in
// flight. Routes are labelled by pattern. A nil meter disables it.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}

	requests, err := meter.Int64Counter("http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		active.Add(ctx, 1)

		c.Next()

		ctx = context.WithoutCancel(ctx)
		active.Add(ctx, -1)

		method := attribute.String("method", c.Request.Method)
		route := attribute.String("route", routePattern(c))
		status := c.Writer.Status()
		requests.Add(ctx, 1, metric.WithAttributes(method, route,
			attribute.String("status_code", strconv.Itoa(status)),
			attribute.String("status_group", StatusGroup(status)),
		))
		duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(method, route))
	}, nil
}

// routePattern keeps label cardinality bounded: unmatched paths share one label
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// StatusGroup returns the class of a status code ("2xx", "4xx", ...)
func StatusGroup(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
