package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/webitel/event-fanout-service/config"
)

const (
	ServiceName      = "event-fanout-service"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Fan out one upstream event stream to WebSocket, SSE and long-poll subscribers",
		Version: fmt.Sprintf("%s (%s@%s, %s)", version, branch, commit, commitDate),
		Commands: []*cli.Command{
			serverCmd(),
			topCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the fan-out bridge",
		// Flags belong to config.Flags so viper sees their defaults.
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			cfg, v, err := config.LoadConfig(c.Args().Slice())
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			app := NewApp(cfg, v)
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancel := context.WithTimeout(c.Context, app.StartTimeout())
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			// [SHUTDOWN] Wait covers SIGINT/SIGTERM and fx.Shutdowner alike.
			sig := <-app.Wait()
			slog.Info("SHUTTING_DOWN", slog.Any("signal", sig.Signal), slog.Int("exit_code", sig.ExitCode))

			stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
			defer stopCancel()
			if err := app.Stop(stopCtx); err != nil {
				slog.Error("SHUTDOWN_FAILED", slog.Any("err", err))
			}

			if sig.ExitCode != 0 {
				return cli.Exit("stopped after a fatal error", sig.ExitCode)
			}
			return nil
		},
	}
}
