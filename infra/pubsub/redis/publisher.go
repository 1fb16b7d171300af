package redispubsub

import (
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	goredis "github.com/redis/go-redis/v9"
)

type Publisher struct {
	client *goredis.Client
	logger watermill.LoggerAdapter
	closed atomic.Bool
}

var _ message.Publisher = (*Publisher)(nil)

func NewPublisher(client *goredis.Client, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{client: client, logger: logger}
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	if p.closed.Load() {
		return ErrClosed
	}

	for _, msg := range messages {
		data, err := marshal(msg)
		if err != nil {
			return fmt.Errorf("redis pubsub: encode %s: %w", msg.UUID, err)
		}
		if err := p.client.Publish(msg.Context(), topic, data).Err(); err != nil {
			return fmt.Errorf("redis pubsub: publish to %s: %w", topic, err)
		}
		p.logger.Trace("Message published to Redis", watermill.LogFields{"topic": topic, "uuid": msg.UUID})
	}
	return nil
}

// Close stops further publishes. The client belongs to the factory.
func (p *Publisher) Close() error {
	p.closed.Store(true)
	return nil
}
