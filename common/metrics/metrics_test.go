package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/grpc/codes"
)

func TestNewMockIgnoresRecords(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Store.RecordQuery(ctx, "select", "lessons", time.Millisecond, errors.New("boom"))
		m.Events.RecordPublish(ctx, "nats", "lesson.created", time.Millisecond, nil)
		m.Grpc.RecordRequest(ctx, "/grpc.health.v1.Health/Check", time.Millisecond, codes.OK)
		m.Health.RecordDependencyCheck(ctx, "postgres", time.Millisecond, nil)
	})
	assert.True(t, m.Health.DependencyUp("postgres"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var store *StoreMetrics
	var events *EventMetrics
	var health *HealthMetrics

	assert.NotPanics(t, func() {
		store.RecordQuery(context.Background(), "insert", "students", time.Second, nil)
		events.RecordPublish(context.Background(), "kafka", "student.created", time.Second, nil)
		health.RecordDependencyCheck(context.Background(), "sqlite", time.Second, nil)
	})
	assert.False(t, health.DependencyUp("sqlite"))
}

func TestHealthDependencyTracking(t *testing.T) {
	hm, err := NewHealthMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NoError(t, hm.RegisterDependencies(noop.NewMeterProvider().Meter("test"), "postgres"))

	assert.False(t, hm.DependencyUp("postgres"))

	hm.RecordDependencyCheck(context.Background(), "postgres", time.Millisecond, nil)
	assert.True(t, hm.DependencyUp("postgres"))

	hm.RecordDependencyCheck(context.Background(), "postgres", time.Millisecond, errors.New("down"))
	assert.False(t, hm.DependencyUp("postgres"))
}

func TestSplitMethodName(t *testing.T) {
	service, method := splitMethodName("/grpc.health.v1.Health/Check")
	assert.Equal(t, "grpc.health.v1.Health", service)
	assert.Equal(t, "Check", method)

	service, method = splitMethodName("Check")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "Check", method)
}
