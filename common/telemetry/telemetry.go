package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tutor-service/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultEndpoint = "otel-collector.infra.svc.cluster.local:4317"

type Options struct {
	ServiceName    string
	ServiceVersion string
	Env            string
	Storage        string
	Enabled        bool
	Endpoint       string
}

type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *metrics.Metrics
}

func InitMeterProvider(ctx context.Context, opts Options, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	logger.Info("initializing OTel metrics", "endpoint", endpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
			semconv.DeploymentEnvironment(opts.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
	)

	otel.SetMeterProvider(provider)
	logger.Info("OTel metrics initialized")

	return provider, nil
}

// Init wires the meter provider (when enabled) and the shared instruments.
// With telemetry disabled the instruments bind to the global no-op provider.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{}

	if opts.Enabled {
		provider, err := InitMeterProvider(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		t.MeterProvider = provider
	} else {
		logger.Info("telemetry disabled, metrics are not exported")
	}

	m, err := metrics.New(opts.ServiceName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	t.Metrics = m

	meter := otel.Meter(opts.ServiceName)
	if err := m.Health.RegisterServiceInfo(meter, opts.ServiceName, opts.ServiceVersion, opts.Env, opts.Storage); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}

	return t, nil
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
