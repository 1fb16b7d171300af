package httpsrv

import (
	"context"

	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("http-server",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, hub registry.Hubber) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop: func(ctx context.Context) error {
				// [SHUTDOWN_ORDER] Closing subscribers first lets SSE and
				// long-poll handlers return, so Shutdown does not hang on them.
				_ = hub.Shutdown(ctx)
				return s.Stop(ctx)
			},
		})
	}),
)
