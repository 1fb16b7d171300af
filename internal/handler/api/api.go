// Package api serves the JSON introspection and ingest endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pubsubadapter "github.com/webitel/event-fanout-service/internal/adapter/pubsub"
	"github.com/webitel/event-fanout-service/internal/health"
	"github.com/webitel/event-fanout-service/internal/service"
)

const (
	maxPayloadBytes = 1 << 20

	// Request headers with this prefix travel upstream as message metadata.
	metadataHeaderPrefix = "X-Event-Meta-"
)

type Handler struct {
	logger    *slog.Logger
	inspector service.Inspector
	ingestor  service.Ingestor
	monitor   *health.Monitor
}

func NewHandler(logger *slog.Logger, inspector service.Inspector, ingestor service.Ingestor, monitor *health.Monitor) *Handler {
	return &Handler{
		logger:    logger,
		inspector: inspector,
		ingestor:  ingestor,
		monitor:   monitor,
	}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/subscribers/{id}", h.Subscriber)
		r.Post("/events/{topic}", h.Publish)
	})
}

func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.inspector.Stats())
}

func (h *Handler) Subscriber(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscriber id")
		return
	}

	info, ok := h.inspector.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "subscriber not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type publishResponse struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// Publish forwards the raw body upstream. Subscribers see it only after the
// source reads it back from the broker.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	id, err := h.ingestor.Ingest(r.Context(), topic, body, metadataFromHeaders(r.Header))
	switch {
	case errors.Is(err, pubsubadapter.ErrBreakerOpen):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "upstream unavailable")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "INGEST_FAILED", slog.String("topic", topic), slog.Any("err", err))
		writeError(w, http.StatusBadGateway, "failed to publish event")
		return
	}

	w.Header().Set("X-Event-Id", id)
	writeJSON(w, http.StatusAccepted, publishResponse{ID: id, Topic: topic})
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	status := h.monitor.Status()

	code := http.StatusOK
	if !status.Upstream {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func metadataFromHeaders(header http.Header) map[string]string {
	meta := make(map[string]string)
	for key, values := range header {
		if len(values) == 0 || !strings.HasPrefix(key, metadataHeaderPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, metadataHeaderPrefix))
		if name != "" {
			meta[name] = values[0]
		}
	}
	return meta
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
