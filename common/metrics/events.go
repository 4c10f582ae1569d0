package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type EventMetrics struct {
	published       metric.Int64Counter
	publishDuration metric.Float64Histogram
	publishErrors   metric.Int64Counter
	dropped         metric.Int64Counter
}

func NewEventMetrics(meter metric.Meter) (*EventMetrics, error) {
	em := &EventMetrics{}

	var err error

	em.published, err = meter.Int64Counter(
		"events.published",
		metric.WithDescription("Change events handed to the broker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	// 100µs .. 1s
	em.publishDuration, err = meter.Float64Histogram(
		"events.publish_duration",
		metric.WithDescription("Time spent publishing a change event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	)
	if err != nil {
		return nil, err
	}

	em.publishErrors, err = meter.Int64Counter(
		"events.publish_errors",
		metric.WithDescription("Change events that could not be published"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	em.dropped, err = meter.Int64Counter(
		"events.dropped",
		metric.WithDescription("Change events discarded because the publish queue was full or closed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return em, nil
}

func (em *EventMetrics) RecordPublish(ctx context.Context, driver, eventType string, duration time.Duration, err error) {
	if em == nil || em.published == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("event_type", eventType),
	)

	em.published.Add(ctx, 1, attrs)
	em.publishDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		em.publishErrors.Add(ctx, 1, attrs)
	}
}

func (em *EventMetrics) RecordDropped(ctx context.Context, driver, eventType string) {
	if em == nil || em.dropped == nil {
		return
	}

	em.dropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("event_type", eventType),
	))
}
