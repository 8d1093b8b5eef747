package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Mutation outcomes recorded by CatalogMetrics
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	attrOperation  = attribute.Key("operation")
	attrOutcome    = attribute.Key("outcome")
	attrDataSource = attribute.Key("data_source")
)

// listDurationBuckets cover in-memory list queries up to slow database round trips (seconds)
var listDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1}

// CatalogMetrics records category list latency, mutation outcomes and list
// responses dropped because a newer request superseded them.
// A nil *CatalogMetrics is valid and records nothing.
type CatalogMetrics struct {
	listDuration   metric.Float64Histogram
	mutations      metric.Int64Counter
	staleResponses metric.Int64Counter
	debounced      metric.Int64Counter
}

// NewCatalogMetrics creates the catalog instruments on the given meter
func NewCatalogMetrics(meter metric.Meter) (*CatalogMetrics, error) {
	m := &CatalogMetrics{}
	var err error
	if m.listDuration, err = meter.Float64Histogram("catalog.list.duration",
		metric.WithDescription("Time to load, filter, sort and paginate a category list"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(listDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create catalog.list.duration: %w", err)
	}
	if m.mutations, err = meter.Int64Counter("catalog.mutations",
		metric.WithDescription("Category create, update, move, status and delete operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create catalog.mutations: %w", err)
	}
	if m.staleResponses, err = meter.Int64Counter("catalog.list.stale_responses",
		metric.WithDescription("List loads discarded because a newer load was started"),
		metric.WithUnit("{response}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create catalog.list.stale_responses: %w", err)
	}
	if m.debounced, err = meter.Int64Counter("catalog.search.debounced",
		metric.WithDescription("Search keystrokes superseded before the debounce delay elapsed"),
		metric.WithUnit("{keystroke}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create catalog.search.debounced: %w", err)
	}
	return m, nil
}

// RecordList records one list load against the named data source
func (m *CatalogMetrics) RecordList(ctx context.Context, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.listDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrDataSource.String(source)))
}

// RecordMutation counts a mutation with its outcome
func (m *CatalogMetrics) RecordMutation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(attrOperation.String(operation), attrOutcome.String(outcome)))
}

// RecordStaleResponse counts a list response that arrived after a newer request
func (m *CatalogMetrics) RecordStaleResponse(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleResponses.Add(ctx, 1)
}

// RecordDebounced counts a search input replaced before it fired
func (m *CatalogMetrics) RecordDebounced(ctx context.Context) {
	if m == nil {
		return
	}
	m.debounced.Add(ctx, 1)
}
