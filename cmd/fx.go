package cmd

import (
	"github.com/spf13/viper"
	"github.com/webitel/event-fanout-service/config"
	otelinfra "github.com/webitel/event-fanout-service/infra/otel"
	"github.com/webitel/event-fanout-service/infra/pubsub"
	grpcsrv "github.com/webitel/event-fanout-service/infra/server/grpc"
	httpsrv "github.com/webitel/event-fanout-service/infra/server/http"
	pubsubadapter "github.com/webitel/event-fanout-service/internal/adapter/pubsub"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"github.com/webitel/event-fanout-service/internal/handler/api"
	grpchandler "github.com/webitel/event-fanout-service/internal/handler/grpc"
	"github.com/webitel/event-fanout-service/internal/handler/ingest"
	"github.com/webitel/event-fanout-service/internal/handler/lp"
	"github.com/webitel/event-fanout-service/internal/handler/sse"
	"github.com/webitel/event-fanout-service/internal/handler/ws"
	"github.com/webitel/event-fanout-service/internal/metrics"
	"github.com/webitel/event-fanout-service/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config, v *viper.Viper) *fx.App {
	return fx.New(Options(cfg, v))
}

// Options is the whole dependency graph, split out so it can be validated.
func Options(cfg *config.Config, v *viper.Viper) fx.Option {
	return fx.Options(
		fx.Supply(
			cfg,
			v,
			otelinfra.BuildInfo{Service: ServiceName, Version: version},
		),
		fx.Provide(
			ProvideLogLevel,
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideHealthMonitor,
		),
		fx.WithLogger(ProvideFxLogger),
		fx.Invoke(WatchLogLevel),
		otelinfra.Module,
		metrics.Module,
		pubsub.Module,
		pubsubadapter.Module,
		registry.Module,
		service.Module,
		httpsrv.Module,
		api.Module,
		ws.Module,
		sse.Module,
		lp.Module,
		grpcsrv.Module,
		grpchandler.Module,
		// [SHUTDOWN_ORDER] Registered last so its OnStop runs first: the
		// source stops consuming before the hub closes.
		ingest.Module,
	)
}
