package sse

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"github.com/webitel/event-fanout-service/internal/service"
)

type stream struct {
	resp   *http.Response
	lines  chan string
	cancel context.CancelFunc
}

func openStream(t *testing.T, hub *registry.Hub, heartbeat time.Duration) *stream {
	t.Helper()

	h := NewSSEHandler(slog.New(slog.DiscardHandler), service.NewDeliveryService(hub), heartbeat)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	s := &stream{resp: resp, lines: make(chan string, 64), cancel: cancel}
	go func() {
		defer close(s.lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			s.lines <- sc.Text()
		}
	}()
	return s
}

// frame collects lines up to the blank line terminating one SSE frame.
func (s *stream) frame(t *testing.T) []string {
	t.Helper()

	var out []string
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				t.Fatalf("stream ended, partial frame %q", out)
			}
			if line == "" {
				return out
			}
			out = append(out, line)
		case <-deadline:
			t.Fatalf("no complete frame, partial %q", out)
		}
	}
}

func newHub() *registry.Hub {
	return registry.NewHub(registry.WithLogger(slog.New(slog.DiscardHandler)))
}

func TestSSEHandler_Headers(t *testing.T) {
	t.Parallel()

	s := openStream(t, newHub(), time.Minute)

	require.Equal(t, http.StatusOK, s.resp.StatusCode)
	require.Equal(t, "text/event-stream", s.resp.Header.Get("Content-Type"))
	require.Equal(t, "no-cache", s.resp.Header.Get("Cache-Control"))
	require.Equal(t, "no", s.resp.Header.Get("X-Accel-Buffering"))
}

func TestSSEHandler_StreamsFrames(t *testing.T) {
	t.Parallel()

	hub := newHub()
	s := openStream(t, hub, time.Minute)

	hello := s.frame(t)
	require.Equal(t, "event: connected", hello[0])
	require.True(t, strings.HasPrefix(hello[1], `data: {"subscriber_id":`), hello[1])

	_, err := hub.Publish(context.Background(), model.Inbound{Topic: "products", Payload: []byte("line1\nline2")})
	require.NoError(t, err)
	_, err = hub.Publish(context.Background(), model.Inbound{Payload: []byte(`{"price":10}`)})
	require.NoError(t, err)

	require.Equal(t, []string{"id: 1", "event: products", "data: line1", "data: line2"}, s.frame(t))
	require.Equal(t, []string{"id: 2", "event: message", `data: {"price":10}`}, s.frame(t))
}

func TestSSEHandler_KeepAlive(t *testing.T) {
	t.Parallel()

	s := openStream(t, newHub(), 20*time.Millisecond)
	s.frame(t)

	require.Equal(t, []string{": keepalive"}, s.frame(t))
}

func TestSSEHandler_UnsubscribesOnClientGone(t *testing.T) {
	t.Parallel()

	hub := newHub()
	s := openStream(t, hub, time.Minute)
	s.frame(t)
	require.Equal(t, 1, hub.Stats().Subscribers)

	s.cancel()

	require.Eventually(t, func() bool {
		return hub.Stats().Subscribers == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSSEHandler_DisconnectedOnShutdown(t *testing.T) {
	t.Parallel()

	hub := newHub()
	s := openStream(t, hub, time.Minute)
	s.frame(t)

	require.NoError(t, hub.Shutdown(context.Background()))

	bye := s.frame(t)
	require.Equal(t, "event: disconnected", bye[0])
	require.Contains(t, bye[1], `"reason":"server_shutdown"`)
}

func TestSSEHandler_RejectsAfterShutdown(t *testing.T) {
	t.Parallel()

	hub := newHub()
	require.NoError(t, hub.Shutdown(context.Background()))

	h := NewSSEHandler(slog.New(slog.DiscardHandler), service.NewDeliveryService(hub), time.Minute)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse/events", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCloseReason(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := registry.NewHub(
		registry.WithLogger(slog.New(slog.DiscardHandler)),
		registry.WithBufferCapacity(1),
		registry.WithOverflowPolicy(model.Disconnect),
		registry.WithDrainTimeout(20*time.Millisecond),
	)
	slow := hub.Subscribe(ctx, model.SubscriberMeta{})
	for _, p := range []string{"a", "b"} {
		_, err := hub.Publish(ctx, model.Inbound{Topic: "products", Payload: []byte(p)})
		require.NoError(t, err)
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("drain timeout did not close the subscriber")
	}
	require.Equal(t, "slow_consumer", closeReason(slow.Info()))

	healthy := hub.Subscribe(ctx, model.SubscriberMeta{})
	require.NoError(t, hub.Shutdown(ctx))
	<-healthy.Done()
	require.Equal(t, "server_shutdown", closeReason(healthy.Info()))
}
