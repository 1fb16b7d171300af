package lpmarshaller

import (
	"encoding/json"

	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/handler/marshaller"
)

// Response defines the top-level JSON array to support event batching.
type Response struct {
	Events  []json.RawMessage `json:"events"`
	LastSeq uint64            `json:"last_seq"`
	Dropped uint64            `json:"dropped,omitempty"`
}

// MarshallEvents converts a slice of events into a single JSON batch.
// Each element reuses the event's cached JSON frame.
func MarshallEvents(events []*model.Event, dropped uint64) ([]byte, error) {
	res := Response{
		Events:  make([]json.RawMessage, 0, len(events)),
		Dropped: dropped,
	}

	for _, ev := range events {
		body, err := marshaller.MarshallEvent(ev)
		if err != nil {
			return nil, err
		}
		res.Events = append(res.Events, body)
		res.LastSeq = ev.Seq
	}

	return json.Marshal(res)
}
