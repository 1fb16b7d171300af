package grpc

import (
	"context"
	"log/slog"

	grpcsrv "github.com/webitel/event-fanout-service/infra/server/grpc"
	"github.com/webitel/event-fanout-service/internal/health"
	"go.uber.org/fx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported through the health service.
const ServiceName = "fanout.v1.EventFanout"

var Module = fx.Module("health-grpc",
	fx.Provide(
		func(logger *slog.Logger) *HealthService {
			return NewHealthService(logger.With(slog.String("component", "health")), ServiceName)
		},
	),
	fx.Invoke(RegisterHealthService),
)

func RegisterHealthService(
	lc fx.Lifecycle,
	server *grpcsrv.Server,
	service *HealthService,
	monitor *health.Monitor,
) {
	healthpb.RegisterHealthServer(server.Server, service)
	service.Bind(monitor)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Watchers see NOT_SERVING before the listener goes away.
			service.Shutdown()
			return nil
		},
	})
}
