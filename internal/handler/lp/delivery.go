package lp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	lpmarshaller "github.com/webitel/event-fanout-service/internal/handler/marshaller/lp"
	"github.com/webitel/event-fanout-service/internal/service"
)

const Transport = "lp"

type LPHandler struct {
	deliverer service.Deliverer
	timeout   time.Duration
	batch     int
}

func NewLPHandler(deliverer service.Deliverer, timeout time.Duration, batch int) *LPHandler {
	return &LPHandler{
		deliverer: deliverer,
		timeout:   timeout,
		batch:     max(batch, 1),
	}
}

// Poll handles the long-polling request.
// It holds the connection until an event arrives or timeout occurs.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Temporary Subscription.
	// The subscriber lives only for the duration of this HTTP request.
	sub, err := h.deliverer.Subscribe(ctx, model.SubscriberMeta{
		Transport:  Transport,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		http.Error(w, "delivery unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.deliverer.Unsubscribe(context.WithoutCancel(ctx), sub.ID())

	// 2. Wait for data or timeout.
	waitCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ev, err := sub.Next(waitCtx)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, registry.ErrSubscriberClosed):
		http.Error(w, "delivery unavailable", http.StatusServiceUnavailable)
		return
	default:
		// Client disconnected.
		return
	}

	// 3. Drain what is already buffered to reduce follow-up requests.
	events := []*model.Event{ev}
	for len(events) < h.batch {
		next, ok := sub.TryNext()
		if !ok {
			break
		}
		events = append(events, next)
	}

	// 4. Final transmission.
	data, err := lpmarshaller.MarshallEvents(events, sub.Info().DroppedCount)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
