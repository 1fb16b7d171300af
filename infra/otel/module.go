package otel

import (
	"context"

	"github.com/webitel/event-fanout-service/config"
	"go.uber.org/fx"
)

// BuildInfo identifies the running binary in exported resources.
type BuildInfo struct {
	Service string
	Version string
}

var Module = fx.Module("otel",
	fx.Provide(func(lc fx.Lifecycle, cfg *config.Config, info BuildInfo) (*Provider, error) {
		p, err := NewProvider(context.Background(), cfg.Tracing, info.Service, info.Version)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: p.Shutdown})
		return p, nil
	}),
	// Force construction so the global provider is set before anything traces.
	fx.Invoke(func(*Provider) {}),
)
