package service

import (
	"context"

	pubsubadapter "github.com/webitel/event-fanout-service/internal/adapter/pubsub"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

// Ingestor accepts events from the HTTP API and sends them upstream. They
// reach subscribers only once the source reads them back.
type Ingestor interface {
	Ingest(ctx context.Context, topic string, payload []byte, metadata map[string]string) (string, error)
}

type IngestService struct {
	dispatcher pubsubadapter.EventDispatcher
}

func NewIngestService(dispatcher pubsubadapter.EventDispatcher) *IngestService {
	return &IngestService{dispatcher: dispatcher}
}

func (s *IngestService) Ingest(ctx context.Context, topic string, payload []byte, metadata map[string]string) (string, error) {
	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[model.MetadataTopic] = topic

	return s.dispatcher.Publish(ctx, topic, payload, meta)
}
