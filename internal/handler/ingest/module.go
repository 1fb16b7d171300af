package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/webitel/event-fanout-service/config"
	pubsubadapter "github.com/webitel/event-fanout-service/internal/adapter/pubsub"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"github.com/webitel/event-fanout-service/internal/health"
	"github.com/webitel/event-fanout-service/internal/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(
		func(sp *pubsubadapter.SubscriberProvider) SubscriberBuilder { return sp },
		NewSourceFromConfig,
	),
	fx.Invoke(RegisterSource),
)

func NewSourceFromConfig(
	cfg *config.Config,
	hub registry.Hubber,
	builder SubscriberBuilder,
	logger *slog.Logger,
	monitor *health.Monitor,
	m *metrics.Metrics,
) *Source {
	return NewSource(hub, builder, cfg.Source.Topic,
		WithSourceLogger(logger.With(slog.String("component", "ingest"), slog.String("driver", cfg.Source.Driver))),
		WithRetry(cfg.Source.MaxRetries, cfg.Source.InitialBackoff, cfg.Source.MaxBackoff),
		WithStatusHook(monitor.SetUpstream),
		WithReconnectHook(func(error, time.Duration) {
			m.UpstreamReconnects.WithLabelValues(cfg.Source.Driver).Inc()
		}),
	)
}

// [PIPELINE_LIFECYCLE]
// The source runs for the whole app lifetime. Running out of reconnects is
// fatal: the app shuts down with a non-zero exit code.
func RegisterSource(lc fx.Lifecycle, src *Source, sd fx.Shutdowner, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				err := src.Run(ctx)
				if errors.Is(err, ErrUpstreamExhausted) {
					logger.Error("INGEST_PIPELINE_FAILED", slog.Any("err", err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
