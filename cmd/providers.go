package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/webitel/event-fanout-service/config"
	"github.com/webitel/event-fanout-service/internal/health"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.uber.org/fx/fxevent"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
	LogFormatOTel = "otel"
)

func ProvideLogLevel(cfg *config.Config) *slog.LevelVar {
	lvl := new(slog.LevelVar)
	lvl.Set(parseLevel(cfg.Log.Level))
	return lvl
}

func ProvideLogger(cfg *config.Config, level *slog.LevelVar) *slog.Logger {
	logger := newLogger(os.Stdout, cfg.Log.Format, level).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case LogFormatText:
		return slog.New(slog.NewTextHandler(w, opts))
	case LogFormatOTel:
		// Records go to the global OpenTelemetry LoggerProvider.
		return slog.New(otelslog.NewHandler(ServiceName))
	default:
		return slog.New(slog.NewJSONHandler(w, opts))
	}
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With(slog.String("component", "watermill")))
}

func ProvideHealthMonitor(cfg *config.Config) *health.Monitor {
	return health.NewMonitor(cfg.Source.Driver)
}

func ProvideFxLogger(logger *slog.Logger) fxevent.Logger {
	l := &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
	l.UseLogLevel(slog.LevelDebug)
	return l
}

// [HOT_RELOAD] Only the log level is reloadable. Everything else is read once.
func WatchLogLevel(v *viper.Viper, level *slog.LevelVar, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next := parseLevel(v.GetString("log.level"))
		if next == level.Level() {
			return
		}
		level.Set(next)
		logger.Info("LOG_LEVEL_CHANGED", slog.String("level", next.String()), slog.String("file", e.Name))
	})
	v.WatchConfig()
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
