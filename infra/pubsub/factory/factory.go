// Package factory builds watermill publishers and subscribers for the
// configured upstream broker driver.
package factory

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrUnknownDriver = errors.New("pubsub: unknown driver")

const (
	DriverAMQP   = "amqp"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Factory hides the broker driver behind watermill's Publisher/Subscriber.
type Factory interface {
	BuildSubscriber(cfg *SubscriberConfig) (message.Subscriber, error)
	BuildPublisher(cfg *PublisherConfig) (message.Publisher, error)
	Driver() string
	Close() error
}

type ExchangeConfig struct {
	Name    string
	Type    string
	Durable bool
}

type PublisherConfig struct {
	Exchange ExchangeConfig
}

type SubscriberConfig struct {
	Queue      string
	Exchange   ExchangeConfig
	BindingKey string
	Prefetch   int
}
