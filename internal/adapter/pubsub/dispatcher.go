package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
)

var ErrBreakerOpen = errors.New("event dispatcher: circuit breaker open")

// EventDispatcher defines the high-level contract for outgoing events.
// Events published here go to the upstream broker, never to the hub directly:
// they come back through the ingest pipeline like any other upstream message.
type EventDispatcher interface {
	Publish(ctx context.Context, topic string, payload []byte, metadata map[string]string) (string, error)
	Publisher() message.Publisher
}

type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// eventDispatcher is the concrete implementation (private).
type eventDispatcher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// NewEventDispatcher returns the interface instead of the pointer to the struct.
func NewEventDispatcher(pub message.Publisher, bs BreakerSettings, logger *slog.Logger) EventDispatcher {
	maxFailures := bs.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	d := &eventDispatcher{
		publisher: pub,
		logger:    logger,
	}

	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "upstream-publisher",
		Timeout: bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("BREAKER_STATE_CHANGED",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return d
}

func (d *eventDispatcher) Publish(ctx context.Context, topic string, payload []byte, metadata map[string]string) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("event dispatcher: empty topic")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	msg.SetContext(ctx)

	// [FAIL_FAST] An unreachable broker trips the breaker instead of piling up
	// blocked HTTP requests behind it.
	_, err := d.breaker.Execute(func() (interface{}, error) {
		return nil, d.publisher.Publish(topic, msg)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "", fmt.Errorf("%w: %s", ErrBreakerOpen, topic)
	case err != nil:
		return "", fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", topic, err)
	}

	d.logger.DebugContext(ctx, "EVENT_DISPATCHED", slog.String("topic", topic), slog.String("msg_id", msg.UUID))
	return msg.UUID, nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}
