package factory

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

type amqpFactory struct {
	uri    string
	logger watermill.LoggerAdapter
}

func NewAMQPFactory(uri string, logger watermill.LoggerAdapter) Factory {
	return &amqpFactory{uri: uri, logger: logger}
}

func (f *amqpFactory) Driver() string { return DriverAMQP }

func (f *amqpFactory) BuildSubscriber(cfg *SubscriberConfig) (message.Subscriber, error) {
	c := amqp.NewDurablePubSubConfig(f.uri, amqp.GenerateQueueNameConstant(cfg.Queue))

	// [TOPOLOGY] Exchange and binding are fixed by config; the watermill topic
	// is only used as a fallback routing key.
	c.Exchange = exchangeConfig(cfg.Exchange)
	c.QueueBind = amqp.QueueBindConfig{
		GenerateRoutingKey: func(topic string) string {
			if cfg.BindingKey != "" {
				return cfg.BindingKey
			}
			return topic
		},
	}

	// [ORDERING] One in-flight delivery keeps arrival order intact.
	prefetch := cfg.Prefetch
	if prefetch < 1 {
		prefetch = 1
	}
	c.Consume.Qos.PrefetchCount = prefetch

	sub, err := amqp.NewSubscriber(c, f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp: subscriber on %s: %w", cfg.Queue, err)
	}
	return sub, nil
}

func (f *amqpFactory) BuildPublisher(cfg *PublisherConfig) (message.Publisher, error) {
	c := amqp.NewDurablePubSubConfig(f.uri, nil)
	c.Exchange = exchangeConfig(cfg.Exchange)
	c.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	pub, err := amqp.NewPublisher(c, f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp: publisher on %s: %w", cfg.Exchange.Name, err)
	}
	return pub, nil
}

// Connections are owned by the subscribers and publishers themselves.
func (f *amqpFactory) Close() error { return nil }

func exchangeConfig(e ExchangeConfig) amqp.ExchangeConfig {
	kind := e.Type
	if kind == "" {
		kind = "topic"
	}
	return amqp.ExchangeConfig{
		GenerateName: func(string) string { return e.Name },
		Type:         kind,
		Durable:      e.Durable,
	}
}
