package ingest

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// [INFRASTRUCTURE_BRIDGE]
// Bind connects a watermill message to Hub.Publish. The payload is handed
// over untouched: malformed bodies are the subscribers' concern, not ours.
func Bind(hub registry.Hubber, topic string, tracer trace.Tracer) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		in := toInbound(msg, topic)

		ctx, span := tracer.Start(msg.Context(), "fanout.ingest "+in.Topic,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.destination.name", in.Topic),
				attribute.String("messaging.message.id", msg.UUID),
				attribute.Int("messaging.message.body.size", len(msg.Payload)),
			),
		)
		defer span.End()

		report, err := hub.Publish(ctx, in)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err // NACK: the message stays upstream.
		}

		span.SetAttributes(
			attribute.Int64("fanout.seq", int64(report.Event.Seq)),
			attribute.Int("fanout.accepted", report.Accepted),
			attribute.Int("fanout.dropped", report.Dropped),
			attribute.Int("fanout.evicted", report.Evicted),
		)
		return nil, nil
	}
}

func toInbound(msg *message.Message, topic string) model.Inbound {
	if t := msg.Metadata.Get(model.MetadataTopic); t != "" {
		topic = t
	}

	var meta map[string]string
	if len(msg.Metadata) > 0 {
		meta = make(map[string]string, len(msg.Metadata))
		for k, v := range msg.Metadata {
			meta[k] = v
		}
	}

	return model.Inbound{
		ID:         msg.UUID,
		Topic:      topic,
		Payload:    msg.Payload,
		Metadata:   meta,
		TraceID:    msg.Metadata.Get(model.MetadataTraceID),
		ReceivedAt: time.Now(),
	}
}
