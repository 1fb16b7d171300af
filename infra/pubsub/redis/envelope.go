package redispubsub

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// envelope carries watermill's uuid and metadata through a Redis channel,
// which itself only transports an opaque string.
type envelope struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func marshal(msg *message.Message) ([]byte, error) {
	return json.Marshal(envelope{
		UUID:     msg.UUID,
		Metadata: msg.Metadata,
		Payload:  msg.Payload,
	})
}

// unmarshal never fails: anything that is not an envelope came from a plain
// PUBLISH and is passed through as the raw payload.
func unmarshal(data []byte) *message.Message {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.UUID == "" {
		return message.NewMessage(watermill.NewUUID(), data)
	}

	msg := message.NewMessage(env.UUID, env.Payload)
	for k, v := range env.Metadata {
		msg.Metadata.Set(k, v)
	}
	return msg
}
