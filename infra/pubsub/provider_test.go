package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/config"
	"github.com/webitel/event-fanout-service/infra/pubsub/factory"
)

func TestNewProvider_MemoryLoopsBack(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Source: config.SourceConfig{Driver: factory.DriverMemory}}
	p, err := NewProvider(cfg, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.GetFactory().Close() })

	f := p.GetFactory()
	require.Equal(t, factory.DriverMemory, f.Driver())

	sub, err := f.BuildSubscriber(&factory.SubscriberConfig{})
	require.NoError(t, err)
	pub, err := f.BuildPublisher(&factory.PublisherConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := sub.Subscribe(ctx, "products")
	require.NoError(t, err)

	require.NoError(t, pub.Publish("products", message.NewMessage(watermill.NewUUID(), []byte("hello"))))

	select {
	case msg := <-msgs:
		require.Equal(t, "hello", string(msg.Payload))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("message did not loop back")
	}
}

func TestNewProvider_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(&config.Config{Source: config.SourceConfig{Driver: "kafka"}}, watermill.NopLogger{})
	require.ErrorIs(t, err, factory.ErrUnknownDriver)
}

func TestNewProvider_MemoryHandlesShareChannel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Source: config.SourceConfig{Driver: factory.DriverMemory}}
	p, err := NewProvider(cfg, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.GetFactory().Close() })

	f := p.GetFactory()

	first, err := f.BuildSubscriber(&factory.SubscriberConfig{})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// A reconnect builds a new handle on the same channel.
	second, err := f.BuildSubscriber(&factory.SubscriberConfig{})
	require.NoError(t, err)
	pub, err := f.BuildPublisher(&factory.PublisherConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := second.Subscribe(ctx, "products")
	require.NoError(t, err)
	require.NoError(t, pub.Publish("products", message.NewMessage(watermill.NewUUID(), []byte("again"))))

	select {
	case msg := <-msgs:
		require.Equal(t, "again", string(msg.Payload))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("channel closed by a handle")
	}
}
