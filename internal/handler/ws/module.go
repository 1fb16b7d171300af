package ws

import (
	"log/slog"

	"github.com/webitel/event-fanout-service/config"
	httpsrv "github.com/webitel/event-fanout-service/infra/server/http"
	"github.com/webitel/event-fanout-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery-ws",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger, deliverer service.Deliverer) *WSHandler {
			return NewWSHandler(
				logger.With(slog.String("transport", Transport)),
				deliverer,
				cfg.Hub.HeartbeatInterval,
				cfg.HTTP.AllowedOrigins,
			)
		},
	),
	fx.Invoke(RegisterWSHandler),
)

func RegisterWSHandler(server *httpsrv.Server, h *WSHandler) {
	server.Router.Get("/ws/events", h.ServeHTTP)
}
