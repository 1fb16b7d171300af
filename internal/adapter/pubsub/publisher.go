package pubsub

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/event-fanout-service/config"
	infrapubsub "github.com/webitel/event-fanout-service/infra/pubsub"
	"github.com/webitel/event-fanout-service/infra/pubsub/factory"
)

type PublisherProvider struct {
	factory  factory.Factory
	exchange config.AMQPConfig
}

func NewPublisherProvider(p infrapubsub.Provider, cfg *config.Config) *PublisherProvider {
	return &PublisherProvider{factory: p.GetFactory(), exchange: cfg.AMQP}
}

func (pp *PublisherProvider) Build() (message.Publisher, error) {
	return pp.factory.BuildPublisher(&factory.PublisherConfig{
		Exchange: factory.ExchangeConfig{
			Name:    pp.exchange.Exchange,
			Type:    pp.exchange.ExchangeType,
			Durable: true,
		},
	})
}
