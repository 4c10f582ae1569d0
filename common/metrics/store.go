package metrics

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StoreMetrics covers both persistence backends: postgres tables and local kv collections
type StoreMetrics struct {
	connectionsOpen  metric.Int64ObservableGauge
	connectionsIdle  metric.Int64ObservableGauge
	connectionsInUse metric.Int64ObservableGauge
	opDuration       metric.Float64Histogram
	opErrors         metric.Int64Counter
	db               *sql.DB
}

func NewStoreMetrics(meter metric.Meter) (*StoreMetrics, error) {
	sm := &StoreMetrics{}

	var err error

	sm.connectionsOpen, err = meter.Int64ObservableGauge(
		"store.connections.open",
		metric.WithDescription("Current number of open database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	sm.connectionsIdle, err = meter.Int64ObservableGauge(
		"store.connections.idle",
		metric.WithDescription("Current number of idle database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	sm.connectionsInUse, err = meter.Int64ObservableGauge(
		"store.connections.in_use",
		metric.WithDescription("Current number of in-use database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	// 1ms .. 5s
	sm.opDuration, err = meter.Float64Histogram(
		"store.operation.duration",
		metric.WithDescription("Duration of a persistence operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	sm.opErrors, err = meter.Int64Counter(
		"store.operation.errors",
		metric.WithDescription("Failed persistence operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RegisterDB observes the connection pool of db. Only the postgres backend has one.
func (sm *StoreMetrics) RegisterDB(db *sql.DB, meter metric.Meter) error {
	if sm == nil || sm.connectionsOpen == nil {
		return nil
	}
	sm.db = db

	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			if sm.db == nil {
				return nil
			}
			stats := sm.db.Stats()
			observer.ObserveInt64(sm.connectionsOpen, int64(stats.OpenConnections))
			observer.ObserveInt64(sm.connectionsIdle, int64(stats.Idle))
			observer.ObserveInt64(sm.connectionsInUse, int64(stats.InUse))
			return nil
		},
		sm.connectionsOpen,
		sm.connectionsIdle,
		sm.connectionsInUse,
	)
	return err
}

// RecordQuery records one operation against a collection (table or kv key)
func (sm *StoreMetrics) RecordQuery(ctx context.Context, operation, collection string, duration time.Duration, err error) {
	if sm == nil || sm.opDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("collection", collection),
	}

	sm.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil && sm.opErrors != nil {
		sm.opErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
