package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct {
	calls atomic.Int32
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls.Add(1)
	return errors.New("connection refused")
}

func (p *failingPublisher) Close() error { return nil }

func TestEventDispatcher_PublishesWithMetadata(t *testing.T) {
	t.Parallel()

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := ch.Subscribe(ctx, "products")
	require.NoError(t, err)

	d := NewEventDispatcher(ch, BreakerSettings{}, slog.New(slog.DiscardHandler))
	id, err := d.Publish(ctx, "products", []byte(`{"sku":"A-1"}`), map[string]string{"trace_id": "t-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	select {
	case msg := <-msgs:
		require.Equal(t, id, msg.UUID)
		require.Equal(t, `{"sku":"A-1"}`, string(msg.Payload))
		require.Equal(t, "t-1", msg.Metadata.Get("trace_id"))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("message not published")
	}
}

func TestEventDispatcher_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	pub := &failingPublisher{}
	d := NewEventDispatcher(pub, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute}, slog.New(slog.DiscardHandler))

	for range 3 {
		_, err := d.Publish(context.Background(), "products", []byte("x"), nil)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrBreakerOpen)
	}

	_, err := d.Publish(context.Background(), "products", []byte("x"), nil)
	require.ErrorIs(t, err, ErrBreakerOpen)
	require.Equal(t, int32(3), pub.calls.Load(), "open breaker does not reach the broker")
}

func TestEventDispatcher_RejectsEmptyTopic(t *testing.T) {
	t.Parallel()

	d := NewEventDispatcher(&failingPublisher{}, BreakerSettings{}, slog.New(slog.DiscardHandler))
	_, err := d.Publish(context.Background(), "", []byte("x"), nil)
	require.Error(t, err)
}
