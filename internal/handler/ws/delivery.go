package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	wsmarshaller "github.com/webitel/event-fanout-service/internal/handler/marshaller/ws"
	"github.com/webitel/event-fanout-service/internal/service"
	"golang.org/x/sync/errgroup"
)

const (
	Transport = "ws"

	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

var (
	errPeerClosed = errors.New("ws: peer closed")
	errDrained    = errors.New("ws: subscriber drained")
)

type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	upgrader  websocket.Upgrader
	heartbeat time.Duration
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, heartbeat time.Duration, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. UPGRADE TO WEBSOCKET
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS_UPGRADE_FAILED", slog.Any("err", err))
		return
	}
	defer conn.Close()

	// 2. SUBSCRIBE VIA THE DELIVERY SERVICE
	sub, err := h.deliverer.Subscribe(r.Context(), model.SubscriberMeta{
		Transport:  Transport,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, "unavailable")
		return
	}

	// [SINGLE_UNSUBSCRIBE] The only exit path of this handler.
	defer h.deliverer.Unsubscribe(context.WithoutCancel(r.Context()), sub.ID())

	if err := h.hello(conn, sub); err != nil {
		return
	}

	// 3. PUMPS: any of them ending tears the others down.
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return h.readPump(conn) })
	g.Go(func() error { return h.writePump(ctx, conn, sub) })
	g.Go(func() error { return h.pingPump(ctx, conn) })
	g.Go(func() error {
		<-ctx.Done()
		// Unblocks readPump once another pump has failed.
		_ = conn.Close()
		return nil
	})

	cause := g.Wait()
	h.logger.Debug("WS_SESSION_ENDED",
		slog.String("subscriber_id", sub.ID().String()),
		slog.Any("cause", cause),
	)
}

func (h *WSHandler) hello(conn *websocket.Conn, sub *registry.Subscriber) error {
	info := sub.Info()
	data, err := wsmarshaller.MarshallConnected(&wsmarshaller.ConnectedPayload{
		SubscriberID: info.ID.String(),
		Policy:       info.Policy.String(),
		Capacity:     info.Capacity,
		HeadSeq:      info.LastDeliveredSeq,
	})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readPump only watches the peer: subscribers never send data, but reading
// is required to process pongs and close frames.
func (h *WSHandler) readPump(conn *websocket.Conn) error {
	pongWait := 2 * h.heartbeat

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("%w: %w", errPeerClosed, err)
			}
			return errPeerClosed
		}
	}
}

// writePump is the only writer of data frames on conn.
func (h *WSHandler) writePump(ctx context.Context, conn *websocket.Conn, sub *registry.Subscriber) error {
	for {
		ev, err := sub.Next(ctx)
		if errors.Is(err, registry.ErrSubscriberClosed) {
			h.goodbye(conn, sub)
			return errDrained
		}
		if err != nil {
			return err
		}

		data, err := wsmarshaller.MarshallDeliveryEvent(ev)
		if err != nil {
			h.logger.Error("WS_MARSHAL_FAILED", slog.Uint64("seq", ev.Seq), slog.Any("err", err))
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return fmt.Errorf("ws write: %w", err)
		}
	}
}

// pingPump relies on WriteControl being safe next to the data writer.
func (h *WSHandler) pingPump(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("ws ping: %w", err)
			}
		}
	}
}

// goodbye tells the client why the server is ending the session.
func (h *WSHandler) goodbye(conn *websocket.Conn, sub *registry.Subscriber) {
	info := sub.Info()
	reason, code := closeReason(info)

	data, err := wsmarshaller.MarshallDisconnected(&wsmarshaller.DisconnectedPayload{
		Reason:           reason,
		LastDeliveredSeq: info.LastDeliveredSeq,
		Dropped:          info.DroppedCount,
	})
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	closeWith(conn, code, reason)
}

// closeReason keeps reporting slow_consumer after the drain timeout moved an
// evicted subscriber to Closed.
func closeReason(info model.SubscriberInfo) (string, int) {
	if info.Evicted {
		return "slow_consumer", websocket.CloseTryAgainLater
	}
	return "server_shutdown", websocket.CloseGoingAway
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
