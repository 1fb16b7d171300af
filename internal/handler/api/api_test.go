package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pubsubadapter "github.com/webitel/event-fanout-service/internal/adapter/pubsub"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"github.com/webitel/event-fanout-service/internal/health"
	"github.com/webitel/event-fanout-service/internal/service"
)

type ingestCall struct {
	topic    string
	payload  string
	metadata map[string]string
}

type fakeIngestor struct {
	calls []ingestCall
	err   error
}

func (f *fakeIngestor) Ingest(_ context.Context, topic string, payload []byte, metadata map[string]string) (string, error) {
	f.calls = append(f.calls, ingestCall{topic: topic, payload: string(payload), metadata: metadata})
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

type fixture struct {
	hub      *registry.Hub
	ingestor *fakeIngestor
	monitor  *health.Monitor
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	hub := registry.NewHub(registry.WithLogger(logger), registry.WithBufferCapacity(4))
	f := &fixture{
		hub:      hub,
		ingestor: &fakeIngestor{},
		monitor:  health.NewMonitor("memory"),
		router:   chi.NewRouter(),
	}

	NewHandler(logger, service.NewDeliveryService(hub), f.ingestor, f.monitor).Routes(f.router)
	return f
}

func (f *fixture) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.hub.Subscribe(context.Background(), model.SubscriberMeta{Transport: "ws"})
	_, err := f.hub.Publish(context.Background(), model.Inbound{Payload: []byte(`{}`)})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats model.HubStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Subscribers)
	assert.Equal(t, uint64(1), stats.HeadSeq)
	assert.Equal(t, 4, stats.Capacity)
}

func TestSubscriberLookup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	sub := f.hub.Subscribe(context.Background(), model.SubscriberMeta{Transport: "sse"})

	t.Run("live", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/subscribers/"+sub.ID().String(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"state":"active"`)
	})

	t.Run("closed stays visible", func(t *testing.T) {
		require.True(t, f.hub.Unsubscribe(context.Background(), sub.ID()))
		rec := f.do(http.MethodGet, "/api/v1/subscribers/"+sub.ID().String(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"state":"closed"`)
	})

	t.Run("unknown", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/subscribers/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/subscribers/not-a-uuid", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPublish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "accepted", wantCode: http.StatusAccepted},
		{name: "breaker open", err: fmt.Errorf("%w: products", pubsubadapter.ErrBreakerOpen), wantCode: http.StatusServiceUnavailable},
		{name: "broker error", err: errors.New("channel closed"), wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.ingestor.err = tt.err

			header := http.Header{}
			header.Set("X-Event-Meta-Source", "catalog")
			header.Set("Content-Type", "application/json")

			rec := f.do(http.MethodPost, "/api/v1/events/products", `{"id":7}`, header)
			require.Equal(t, tt.wantCode, rec.Code)

			require.Len(t, f.ingestor.calls, 1)
			call := f.ingestor.calls[0]
			assert.Equal(t, "products", call.topic)
			assert.Equal(t, `{"id":7}`, call.payload)
			assert.Equal(t, map[string]string{"source": "catalog"}, call.metadata)

			if tt.err == nil {
				assert.Equal(t, "msg-1", rec.Header().Get("X-Event-Id"))
			}
		})
	}
}

func TestPublish_NeverTouchesHub(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/events/products", "raw", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Zero(t, f.hub.Stats().HeadSeq)
}

func TestPublish_RejectsOversizedBody(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/events/products", strings.Repeat("x", maxPayloadBytes+1), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.ingestor.calls)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.monitor.SetUpstream(true, nil)
	rec = f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"upstream":true`)
}
