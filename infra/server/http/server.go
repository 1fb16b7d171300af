// Package httpsrv hosts the HTTP surface: streaming transports, the
// introspection API, health checks and the metrics endpoint share one chi router.
package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/webitel/event-fanout-service/config"
	"github.com/webitel/event-fanout-service/internal/metrics"
)

type Server struct {
	Router chi.Router

	srv             *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
	listener        net.Listener
}

func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Server {
	r := chi.NewRouter()

	// [GLOBAL_MIDDLEWARE] Streaming routes must not get a request timeout.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Event-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/metrics", m.Handler())

	return &Server{
		Router: r,
		srv: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

// Start binds the listener synchronously so a taken port fails app start.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http: listen %s: %w", s.srv.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVER_FAILED", slog.Any("err", err))
		}
	}()

	s.logger.Info("HTTP_SERVER_STARTED", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr reports the bound address, useful when listening on ":0".
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Stop waits for in-flight requests. Streaming handlers end on their own
// once the hub closes their subscribers.
func (s *Server) Stop(ctx context.Context) error {
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP_SERVER_FORCED_CLOSE", slog.Any("err", err))
		return s.srv.Close()
	}

	s.logger.Info("HTTP_SERVER_STOPPED")
	return nil
}
