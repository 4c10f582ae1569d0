package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// GrpcHealth serves grpc.health.v1.Health for the whole server ("")
type GrpcHealth struct {
	server *health.Server
	logger *slog.Logger
}

func NewGrpcHealth(logger *slog.Logger) *GrpcHealth {
	server := health.NewServer()
	server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return &GrpcHealth{server: server, logger: logger}
}

func (g *GrpcHealth) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, g.server)
}

func (g *GrpcHealth) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	g.server.SetServingStatus("", status)
}

// Monitor pings checker every interval and mirrors the result into the
// serving status until ctx is done.
func (g *GrpcHealth) Monitor(ctx context.Context, checker Checker, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := checker.Ping(ctx)
			if up := err == nil; up != serving {
				serving = up
				g.logger.Warn("grpc health status changed", "serving", up, "error", err)
				g.SetServing(up)
			}
		}
	}
}

// Shutdown reports NOT_SERVING to every watcher and ignores later updates
func (g *GrpcHealth) Shutdown() {
	g.server.Shutdown()
}
