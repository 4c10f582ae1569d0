package metrics

import (
	"log/slog"

	"go.opentelemetry.io/otel"
)

// Metrics groups the infrastructure instruments shared by every component
type Metrics struct {
	Store  *StoreMetrics
	Events *EventMetrics
	Health *HealthMetrics
	Grpc   *GrpcMetrics
	logger *slog.Logger
}

func New(serviceName string, logger *slog.Logger) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	store, err := NewStoreMetrics(meter)
	if err != nil {
		return nil, err
	}

	events, err := NewEventMetrics(meter)
	if err != nil {
		return nil, err
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	grpcMetrics, err := NewGrpcMetrics(meter)
	if err != nil {
		return nil, err
	}

	logger.Info("metrics collectors initialized")

	return &Metrics{
		Store:  store,
		Events: events,
		Health: health,
		Grpc:   grpcMetrics,
		logger: logger,
	}, nil
}

// NewMock creates a no-op Metrics instance for testing.
// Every Record* call on it is ignored.
func NewMock() *Metrics {
	return &Metrics{
		Store:  &StoreMetrics{},
		Events: &EventMetrics{},
		Health: &HealthMetrics{dependencies: map[string]bool{}},
		Grpc:   &GrpcMetrics{},
	}
}
