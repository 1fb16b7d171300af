package api

import (
	"log/slog"

	httpsrv "github.com/webitel/event-fanout-service/infra/server/http"
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Decorate(func(logger *slog.Logger) *slog.Logger {
		return logger.With(slog.String("component", "api"))
	}),
	fx.Provide(NewHandler),
	fx.Invoke(func(server *httpsrv.Server, h *Handler) {
		h.Routes(server.Router)
	}),
)
