package wsmarshaller

import (
	"encoding/json"
	"time"

	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/handler/marshaller"
)

const (
	FrameEvent        = "event"
	FrameConnected    = "connected"
	FrameDisconnected = "disconnected"
)

// WSEvent is a generic wrapper for WebSocket messages to provide consistent structure
type WSEvent struct {
	Event   string          `json:"event"` // "event", "connected", "disconnected"
	ID      string          `json:"id,omitempty"`
	SentAt  int64           `json:"sent_at"`
	Payload json.RawMessage `json:"payload"`
}

// MarshallDeliveryEvent prepares data for WebSocket transmission.
func MarshallDeliveryEvent(ev *model.Event) ([]byte, error) {
	return ev.Frame("ws", func(ev *model.Event) ([]byte, error) {
		body, err := marshaller.MarshallEvent(ev)
		if err != nil {
			return nil, err
		}
		return json.Marshal(&WSEvent{
			Event:   FrameEvent,
			ID:      ev.ID,
			SentAt:  marshaller.Millis(ev.IngestedAt),
			Payload: body,
		})
	})
}

func MarshallConnected(p *ConnectedPayload) ([]byte, error) {
	return marshallControl(FrameConnected, p)
}

func MarshallDisconnected(p *DisconnectedPayload) ([]byte, error) {
	return marshallControl(FrameDisconnected, p)
}

func marshallControl(kind string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&WSEvent{
		Event:   kind,
		SentAt:  time.Now().UnixMilli(),
		Payload: body,
	})
}
