package sse

import (
	"log/slog"

	"github.com/webitel/event-fanout-service/config"
	httpsrv "github.com/webitel/event-fanout-service/infra/server/http"
	"github.com/webitel/event-fanout-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery-sse",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger, deliverer service.Deliverer) *SSEHandler {
			return NewSSEHandler(
				logger.With(slog.String("transport", Transport)),
				deliverer,
				cfg.Hub.HeartbeatInterval,
			)
		},
	),
	fx.Invoke(RegisterSSEHandler),
)

func RegisterSSEHandler(server *httpsrv.Server, h *SSEHandler) {
	server.Router.Get("/sse/events", h.ServeHTTP)
}
