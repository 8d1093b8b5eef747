package telemetry

import (
	"context"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric wraps a server-timing metric. The zero value is a no-op.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop stops the timing metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming starts a metric on the request's Server-Timing header.
// It returns a no-op metric when the context carries no timing header.
func StartServerTiming(ctx context.Context, name, description string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	metric := timing.NewMetric(name)
	if description != "" {
		metric = metric.WithDesc(description)
	}
	return &ServerTimingMetric{metric: metric.Start()}
}
