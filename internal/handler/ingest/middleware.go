package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
)

type traceIDKey struct{}

// TraceIDFromContext returns the trace id attached by TraceIDMiddleware.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// [TRACE_ID_MIDDLEWARE]
// Ensures TraceID persistence through the call chain.
func TraceIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		traceID := msg.Metadata.Get(model.MetadataTraceID)
		if traceID == "" {
			traceID = uuid.NewString()
			msg.Metadata.Set(model.MetadataTraceID, traceID)
		}

		msg.SetContext(context.WithValue(msg.Context(), traceIDKey{}, traceID))

		return h(msg)
	}
}

// [LOGGING_MIDDLEWARE]
// Structured logging with latency and TraceID.
func LoggingMiddleware(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			start := time.Now()
			msgs, err := h(msg)

			if err != nil {
				logger.ErrorContext(msg.Context(), "MESSAGE_HANDOFF_FAILED",
					slog.String("msg_id", msg.UUID),
					slog.String("trace_id", msg.Metadata.Get(model.MetadataTraceID)),
					slog.Any("err", err),
				)
				return msgs, err
			}

			logger.DebugContext(msg.Context(), "MESSAGE_HANDED_OFF",
				slog.String("msg_id", msg.UUID),
				slog.String("trace_id", msg.Metadata.Get(model.MetadataTraceID)),
				slog.Int64("duration_us", time.Since(start).Microseconds()),
			)
			return msgs, err
		}
	}
}

// Chain wraps h so that the first middleware is the outermost one.
func Chain(h message.HandlerFunc, mws ...message.HandlerMiddleware) message.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// [RETRY_MIDDLEWARE]
// Spaces out attempts on one message so a failing handoff cannot spin.
// A closed hub is final and never retried.
func NewHandoffRetry() middleware.Retry {
	return middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		ShouldRetry: func(p middleware.RetryParams) bool {
			return !errors.Is(p.Err, registry.ErrHubClosed)
		},
	}
}

// DefaultMiddlewares is the per-message pipeline in front of the hub.
// Recoverer is innermost so a recovered panic is retried and then logged
// as a failure.
func DefaultMiddlewares(logger *slog.Logger, retry middleware.Retry) []message.HandlerMiddleware {
	return []message.HandlerMiddleware{
		TraceIDMiddleware,
		LoggingMiddleware(logger),
		retry.Middleware,
		middleware.Recoverer,
	}
}
