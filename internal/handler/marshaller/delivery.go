package marshaller

import (
	"encoding/json"
	"time"

	"github.com/webitel/event-fanout-service/internal/domain/model"
)

const FormatJSON = "json"

// EventJSON is the JSON shape of one event, shared by the WebSocket and
// long-poll transports.
type EventJSON struct {
	Seq        uint64            `json:"seq"`
	ID         string            `json:"id,omitempty"`
	Topic      string            `json:"topic,omitempty"`
	TraceID    string            `json:"trace_id,omitempty"`
	IngestedAt int64             `json:"ingested_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Payload    json.RawMessage   `json:"payload"`
}

// MarshallEvent renders ev as JSON.
// It leverages the event's frame cache so the encoding happens once per
// event, however many subscribers drain it.
func MarshallEvent(ev *model.Event) ([]byte, error) {
	return ev.Frame(FormatJSON, buildEventJSON)
}

func buildEventJSON(ev *model.Event) ([]byte, error) {
	return json.Marshal(&EventJSON{
		Seq:        ev.Seq,
		ID:         ev.ID,
		Topic:      ev.Topic,
		TraceID:    ev.TraceID,
		IngestedAt: ev.IngestedAt.UnixMilli(),
		Metadata:   ev.Metadata,
		Payload:    Payload(ev.Payload),
	})
}

// Payload embeds valid JSON as is and quotes anything else as a string, so
// a malformed upstream body still reaches the subscriber unchanged.
func Payload(raw []byte) json.RawMessage {
	if len(raw) > 0 && json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}

// Millis is the wire representation of timestamps.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
