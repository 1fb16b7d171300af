package factory

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	goredis "github.com/redis/go-redis/v9"
	redispubsub "github.com/webitel/event-fanout-service/infra/pubsub/redis"
)

type redisFactory struct {
	client *goredis.Client
	logger watermill.LoggerAdapter
}

func NewRedisFactory(client *goredis.Client, logger watermill.LoggerAdapter) Factory {
	return &redisFactory{client: client, logger: logger}
}

func (f *redisFactory) Driver() string { return DriverRedis }

func (f *redisFactory) BuildSubscriber(*SubscriberConfig) (message.Subscriber, error) {
	return redispubsub.NewSubscriber(f.client, f.logger), nil
}

func (f *redisFactory) BuildPublisher(*PublisherConfig) (message.Publisher, error) {
	return redispubsub.NewPublisher(f.client, f.logger), nil
}

func (f *redisFactory) Close() error { return f.client.Close() }
