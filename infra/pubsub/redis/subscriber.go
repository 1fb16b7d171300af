// Package redispubsub adapts Redis PUB/SUB to watermill's Publisher and
// Subscriber so the ingest pipeline can treat it like any other broker.
//
// Redis channels have no redelivery: a nacked message is re-sent from memory
// until it is acked or the subscription ends.
package redispubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	goredis "github.com/redis/go-redis/v9"
)

var ErrClosed = errors.New("redis pubsub: closed")

type Subscriber struct {
	client *goredis.Client
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	subs    []*goredis.PubSub
	closing chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

var _ message.Subscriber = (*Subscriber)(nil)

func NewSubscriber(client *goredis.Client, logger watermill.LoggerAdapter) *Subscriber {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Subscriber{
		client:  client,
		logger:  logger,
		closing: make(chan struct{}),
	}
}

// Subscribe confirms the subscription with the server before returning, so a
// dead Redis surfaces as an error here rather than as a silent channel.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	select {
	case <-s.closing:
		return nil, ErrClosed
	default:
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis pubsub: subscribe %s: %w", topic, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, ps)
	s.mu.Unlock()

	out := make(chan *message.Message)
	s.wg.Add(1)
	go s.consume(ctx, topic, ps, out)

	return out, nil
}

func (s *Subscriber) consume(ctx context.Context, topic string, ps *goredis.PubSub, out chan<- *message.Message) {
	defer s.wg.Done()
	defer close(out)
	defer ps.Close()

	fields := watermill.LogFields{"topic": topic}
	s.logger.Info("Redis subscription started", fields)

	in := ps.Channel()
	for {
		select {
		case rm, ok := <-in:
			if !ok {
				s.logger.Info("Redis channel closed", fields)
				return
			}
			if !s.deliver(ctx, out, []byte(rm.Payload), fields) {
				return
			}
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		}
	}
}

// deliver hands one payload to the consumer and waits for the ack.
// The payload is decoded once so every resend carries the same UUID.
func (s *Subscriber) deliver(ctx context.Context, out chan<- *message.Message, data []byte, fields watermill.LogFields) bool {
	original := unmarshal(data)
	for {
		msg := original.Copy()
		msgCtx, cancel := context.WithCancel(ctx)
		msg.SetContext(msgCtx)

		select {
		case out <- msg:
		case <-ctx.Done():
			cancel()
			return false
		case <-s.closing:
			cancel()
			return false
		}

		select {
		case <-msg.Acked():
			cancel()
			return true
		case <-msg.Nacked():
			cancel()
			s.logger.Debug("Message nacked, resending", fields.Add(watermill.LogFields{"uuid": msg.UUID}))
		case <-ctx.Done():
			cancel()
			return false
		case <-s.closing:
			cancel()
			return false
		}
	}
}

func (s *Subscriber) Close() error {
	var errs []error
	s.once.Do(func() {
		close(s.closing)

		s.mu.Lock()
		for _, ps := range s.subs {
			if err := ps.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.subs = nil
		s.mu.Unlock()

		s.wg.Wait()
	})
	return errors.Join(errs...)
}
