package model

import (
	"sync"
	"time"
)

// Well-known upstream metadata keys.
const (
	// MetadataTopic overrides the subscribed topic as the event's topic.
	MetadataTopic   = "topic"
	MetadataTraceID = "trace_id"
)

// Inbound is an upstream message that has not been sequenced yet.
// The ingest adapter builds it from a broker message and hands it to the Hub.
type Inbound struct {
	ID         string
	Topic      string
	Payload    []byte
	Metadata   map[string]string
	TraceID    string
	ReceivedAt time.Time
}

// Event is a sequenced, immutable unit of the broadcast stream.
//
// [OWNERSHIP]
// The Hub creates the Event inside Publish and shares the same pointer with
// every subscriber buffer. Nothing mutates the exported fields after that point.
type Event struct {
	Seq        uint64
	ID         string
	Topic      string
	Payload    []byte
	Metadata   map[string]string
	TraceID    string
	IngestedAt time.Time

	// [FRAME_CACHE]
	// Wire frames keyed by transport format. Marshalling happens once per event,
	// no matter how many subscribers drain it.
	frames sync.Map
}

// NewEvent seals an Inbound message under the given sequence number.
func NewEvent(seq uint64, in Inbound) *Event {
	ingested := in.ReceivedAt
	if ingested.IsZero() {
		ingested = time.Now()
	}

	var meta map[string]string
	if len(in.Metadata) > 0 {
		meta = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			meta[k] = v
		}
	}

	return &Event{
		Seq:        seq,
		ID:         in.ID,
		Topic:      in.Topic,
		Payload:    in.Payload,
		Metadata:   meta,
		TraceID:    in.TraceID,
		IngestedAt: ingested,
	}
}

// Frame returns the cached wire frame for format, building it on first use.
// Concurrent callers may race on the first build; only one result is kept.
func (e *Event) Frame(format string, build func(*Event) ([]byte, error)) ([]byte, error) {
	if cached, ok := e.frames.Load(format); ok {
		return cached.([]byte), nil
	}

	data, err := build(e)
	if err != nil {
		return nil, err
	}

	actual, _ := e.frames.LoadOrStore(format, data)
	return actual.([]byte), nil
}
