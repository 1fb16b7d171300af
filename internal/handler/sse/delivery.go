package sse

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	ssemarshaller "github.com/webitel/event-fanout-service/internal/handler/marshaller/sse"
	"github.com/webitel/event-fanout-service/internal/service"
)

const Transport = "sse"

type SSEHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	heartbeat time.Duration
}

func NewSSEHandler(logger *slog.Logger, deliverer service.Deliverer, heartbeat time.Duration) *SSEHandler {
	return &SSEHandler{
		logger:    logger,
		deliverer: deliverer,
		heartbeat: heartbeat,
	}
}

type connectedPayload struct {
	SubscriberID string `json:"subscriber_id"`
	Policy       string `json:"policy"`
	Capacity     int    `json:"capacity"`
	HeadSeq      uint64 `json:"head_seq"`
}

type disconnectedPayload struct {
	Reason           string `json:"reason"`
	LastDeliveredSeq uint64 `json:"last_delivered_seq"`
	Dropped          uint64 `json:"dropped"`
}

// ServeHTTP streams events as text/event-stream until the client leaves or
// the hub closes the subscriber. All writes happen on this goroutine.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	// [STREAM_HEADERS]
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub, err := h.deliverer.Subscribe(r.Context(), model.SubscriberMeta{
		Transport:  Transport,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		http.Error(w, "delivery unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.deliverer.Unsubscribe(context.WithoutCancel(r.Context()), sub.ID())

	// Streams outlive any server-wide write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)

	info := sub.Info()
	hello, _ := json.Marshal(connectedPayload{
		SubscriberID: info.ID.String(),
		Policy:       info.Policy.String(),
		Capacity:     info.Capacity,
		HeadSeq:      info.LastDeliveredSeq,
	})
	if err := h.write(rc, w, ssemarshaller.MarshallControl("connected", hello)); err != nil {
		h.logger.Warn("SSE_STREAM_UNSUPPORTED", slog.Any("err", err))
		return
	}

	for {
		// [HEARTBEAT] An idle wait of one interval turns into a comment frame.
		waitCtx, cancel := context.WithTimeout(r.Context(), h.heartbeat)
		ev, err := sub.Next(waitCtx)
		cancel()

		switch {
		case err == nil:
			frame, merr := ssemarshaller.MarshallEvent(ev)
			if merr != nil {
				h.logger.Error("SSE_MARSHAL_FAILED", slog.Uint64("seq", ev.Seq), slog.Any("err", merr))
				continue
			}
			if err := h.write(rc, w, frame); err != nil {
				return
			}

		case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
			if err := h.write(rc, w, ssemarshaller.KeepAlive); err != nil {
				return
			}

		case errors.Is(err, registry.ErrSubscriberClosed):
			h.goodbye(rc, w, sub)
			return

		default:
			// Client went away.
			return
		}
	}
}

func (h *SSEHandler) goodbye(rc *http.ResponseController, w http.ResponseWriter, sub *registry.Subscriber) {
	info := sub.Info()
	reason := closeReason(info)

	data, _ := json.Marshal(disconnectedPayload{
		Reason:           reason,
		LastDeliveredSeq: info.LastDeliveredSeq,
		Dropped:          info.DroppedCount,
	})
	_ = h.write(rc, w, ssemarshaller.MarshallControl("disconnected", data))
}

func (h *SSEHandler) write(rc *http.ResponseController, w http.ResponseWriter, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return rc.Flush()
}

func closeReason(info model.SubscriberInfo) string {
	if info.Evicted {
		return "slow_consumer"
	}
	return "server_shutdown"
}
