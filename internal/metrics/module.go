package metrics

import (
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		New,
		func(m *Metrics) registry.Recorder { return m },
	),
)
