package lp

import (
	"github.com/webitel/event-fanout-service/config"
	httpsrv "github.com/webitel/event-fanout-service/infra/server/http"
	"github.com/webitel/event-fanout-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery-lp",
	fx.Provide(
		func(cfg *config.Config, deliverer service.Deliverer) *LPHandler {
			return NewLPHandler(deliverer, cfg.HTTP.LongPollTimeout, cfg.HTTP.LongPollBatch)
		},
	),
	fx.Invoke(func(server *httpsrv.Server, h *LPHandler) {
		server.Router.Get("/lp/events", h.Poll)
	}),
)
