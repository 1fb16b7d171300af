package grpc

import (
	"log/slog"

	"github.com/webitel/event-fanout-service/internal/health"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService publishes upstream status through grpc.health.v1.Health.
// The empty service name and the named service always agree.
type HealthService struct {
	*grpchealth.Server

	logger  *slog.Logger
	service string
}

func NewHealthService(logger *slog.Logger, service string) *HealthService {
	return &HealthService{
		Server:  grpchealth.NewServer(),
		logger:  logger,
		service: service,
	}
}

// Bind keeps the serving status in step with the monitor.
func (h *HealthService) Bind(monitor *health.Monitor) {
	monitor.OnChange(func(up bool) {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if up {
			status = healthpb.HealthCheckResponse_SERVING
		}

		h.SetServingStatus("", status)
		h.SetServingStatus(h.service, status)

		h.logger.Info("HEALTH_STATUS_CHANGED", slog.String("status", status.String()))
	})
}
