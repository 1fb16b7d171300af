package pubsub

import (
	"context"
	"log/slog"

	"github.com/webitel/event-fanout-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub-adapter",
	fx.Provide(
		NewPublisherProvider,
		NewSubscriberProvider,
		func(pp *PublisherProvider, cfg *config.Config, logger *slog.Logger, lc fx.Lifecycle) (EventDispatcher, error) {
			pub, err := pp.Build()
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error { return pub.Close() },
			})
			return NewEventDispatcher(pub, BreakerSettings{
				MaxFailures: cfg.Breaker.MaxFailures,
				OpenTimeout: cfg.Breaker.OpenTimeout,
			}, logger.With(slog.String("component", "dispatcher"))), nil
		},
	),
)
