package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
)

// DelivererMiddleware implements [DECORATOR_PATTERN] to add observability
// to subscription handling without touching the hub.
type DelivererMiddleware struct {
	Next   Deliverer
	Logger *slog.Logger
}

func NewDelivererMiddleware(next Deliverer, logger *slog.Logger) Deliverer {
	return &DelivererMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *DelivererMiddleware) Subscribe(ctx context.Context, meta model.SubscriberMeta) (*registry.Subscriber, error) {
	sub, err := m.Next.Subscribe(ctx, meta)
	if err != nil {
		m.Logger.WarnContext(ctx, "SUBSCRIBE_REJECTED",
			slog.String("transport", meta.Transport),
			slog.String("remote_addr", meta.RemoteAddr),
			slog.Any("err", err),
		)
		return nil, err
	}

	m.Logger.InfoContext(ctx, "SUBSCRIBER_OPENED",
		slog.String("subscriber_id", sub.ID().String()),
		slog.String("transport", meta.Transport),
		slog.String("remote_addr", meta.RemoteAddr),
	)
	return sub, nil
}

// Unsubscribe logs the session summary once, on the call that actually closed it.
func (m *DelivererMiddleware) Unsubscribe(ctx context.Context, id uuid.UUID) bool {
	closed := m.Next.Unsubscribe(ctx, id)
	if !closed {
		return false
	}

	attrs := []any{slog.String("subscriber_id", id.String())}
	if in, ok := m.Next.(Inspector); ok {
		if info, found := in.Lookup(id); found {
			attrs = append(attrs,
				slog.String("transport", info.Meta.Transport),
				slog.Uint64("last_delivered_seq", info.LastDeliveredSeq),
				slog.Uint64("dropped", info.DroppedCount),
				slog.Duration("lifetime", info.ClosedAt.Sub(info.CreatedAt).Round(time.Millisecond)),
			)
		}
	}

	m.Logger.InfoContext(ctx, "SUBSCRIBER_DISCONNECTED", attrs...)
	return true
}
