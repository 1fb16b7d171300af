package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/webitel/event-fanout-service/config"
	infrapubsub "github.com/webitel/event-fanout-service/infra/pubsub"
	"github.com/webitel/event-fanout-service/infra/pubsub/factory"
)

// SourceQueuePrefix names per-instance queues when amqp.queue is empty.
const SourceQueuePrefix = "fanout.source"

type SubscriberProvider struct {
	factory factory.Factory
	amqp    config.AMQPConfig
}

func NewSubscriberProvider(p infrapubsub.Provider, cfg *config.Config) *SubscriberProvider {
	return &SubscriberProvider{factory: p.GetFactory(), amqp: cfg.AMQP}
}

// Build returns the upstream subscriber for this node.
//
// [UNIQUE_NODE_QUEUE]
// Every instance needs its own queue to see the full stream; a shared queue
// would split it between nodes.
func (sp *SubscriberProvider) Build() (message.Subscriber, error) {
	queue := sp.amqp.Queue
	if queue == "" {
		queue = fmt.Sprintf("%s.%s", SourceQueuePrefix, uuid.NewString()[:8])
	}

	return sp.factory.BuildSubscriber(&factory.SubscriberConfig{
		Queue: queue,
		Exchange: factory.ExchangeConfig{
			Name:    sp.amqp.Exchange,
			Type:    sp.amqp.ExchangeType,
			Durable: true,
		},
		BindingKey: sp.amqp.BindingKey,
		Prefetch:   sp.amqp.Prefetch,
	})
}
