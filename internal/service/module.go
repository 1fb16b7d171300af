package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		NewDeliveryService,
		func(s *DeliveryService) Deliverer { return s },
		func(s *DeliveryService) Inspector { return s },
		fx.Annotate(
			NewIngestService,
			fx.As(new(Ingestor)),
		),
	),

	// [DECORATION_LAYER] Intercept Deliverer to add cross-cutting concerns
	fx.Decorate(func(orig Deliverer, logger *slog.Logger) Deliverer {
		return NewDelivererMiddleware(orig, logger.With(slog.String("component", "delivery")))
	}),
)
