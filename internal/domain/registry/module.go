package registry

import (
	"context"
	"log/slog"

	"github.com/webitel/event-fanout-service/config"
	"go.uber.org/fx"
)

type hubParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Recorder Recorder `optional:"true"`
}

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Hub using Functional Options
		func(p hubParams) *Hub {
			return NewHub(
				WithBufferCapacity(p.Config.Hub.BufferCapacity),
				WithOverflowPolicy(p.Config.Hub.Policy()),
				WithDrainTimeout(p.Config.Hub.DrainTimeout),
				WithTombstones(p.Config.Hub.Tombstones),
				WithLogger(p.Logger.With(slog.String("component", "hub"))),
				WithRecorder(p.Recorder),
			)
		},
		fx.Annotate(
			func(h *Hub) Hubber { return h },
			fx.As(new(Hubber)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return h.Shutdown(ctx) // [GRACEFUL_SHUTDOWN] Wake every drain loop
			},
		})
	}),
)
