package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	goredis "github.com/redis/go-redis/v9"
	"github.com/webitel/event-fanout-service/config"
	"github.com/webitel/event-fanout-service/infra/pubsub/factory"
)

// Provider exposes the broker factory selected by source.driver.
type Provider interface {
	GetFactory() factory.Factory
}

type provider struct {
	factory factory.Factory
}

func (p *provider) GetFactory() factory.Factory { return p.factory }

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) (Provider, error) {
	f, err := newFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &provider{factory: f}, nil
}

func newFactory(cfg *config.Config, logger watermill.LoggerAdapter) (factory.Factory, error) {
	switch cfg.Source.Driver {
	case factory.DriverAMQP:
		return factory.NewAMQPFactory(cfg.AMQP.URI, logger), nil

	case factory.DriverRedis:
		opts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("pubsub: parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("pubsub: redis ping: %w", err)
		}
		return factory.NewRedisFactory(client, logger), nil

	case factory.DriverMemory:
		return factory.NewMemoryFactory(logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", factory.ErrUnknownDriver, cfg.Source.Driver)
	}
}
