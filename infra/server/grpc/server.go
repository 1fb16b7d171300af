// Package grpcsrv runs the gRPC listener. Only the standard health service is
// registered on it; orchestrators read upstream status through it.
package grpcsrv

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/webitel/event-fanout-service/config"
	"github.com/webitel/event-fanout-service/infra/server/grpc/interceptors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	*grpc.Server

	addr     string
	logger   *slog.Logger
	listener net.Listener
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	logOpts := []logging.Option{
		logging.WithLogOnEvents(logging.FinishCall),
		logging.WithFieldsFromContext(interceptors.LoggingFields),
	}
	recoveryOpts := []recovery.Option{
		recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
			logger.ErrorContext(ctx, "GRPC_PANIC_RECOVERED", slog.Any("panic", p))
			return status.Error(codes.Internal, "internal error")
		}),
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.NewUnaryRequestIDInterceptor(),
			logging.UnaryServerInterceptor(InterceptorLogger(logger), logOpts...),
			recovery.UnaryServerInterceptor(recoveryOpts...),
		),
		grpc.ChainStreamInterceptor(
			interceptors.NewStreamRequestIDInterceptor(),
			logging.StreamServerInterceptor(InterceptorLogger(logger), logOpts...),
			recovery.StreamServerInterceptor(recoveryOpts...),
		),
	)

	return &Server{
		Server: srv,
		addr:   cfg.GRPC.Addr,
		logger: logger,
	}
}

// InterceptorLogger adapts slog to the go-grpc-middleware logger.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc: listen %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.Serve(ln); err != nil {
			s.logger.Error("GRPC_SERVER_FAILED", slog.Any("err", err))
		}
	}()

	s.logger.Info("GRPC_SERVER_STARTED", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop drains in-flight RPCs, falling back to a hard stop when ctx ends.
// Health Watch streams never finish on their own, so the fallback matters.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Server.Stop()
	}

	s.logger.Info("GRPC_SERVER_STOPPED")
	return nil
}
