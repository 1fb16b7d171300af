package pubsub

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(NewProvider),
	fx.Invoke(func(lc fx.Lifecycle, p Provider) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return p.GetFactory().Close()
			},
		})
	}),
)
