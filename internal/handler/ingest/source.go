package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/cenkalti/backoff/v5"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUpstreamExhausted is returned by Run once reconnect attempts are spent.
	ErrUpstreamExhausted = errors.New("ingest: upstream reconnect attempts exhausted")
	ErrUpstreamLost      = errors.New("ingest: upstream channel closed")
)

const TracerName = "github.com/webitel/event-fanout-service/internal/handler/ingest"

// SubscriberBuilder creates a fresh upstream subscriber per connection attempt.
type SubscriberBuilder interface {
	Build() (message.Subscriber, error)
}

type SourceOption func(*Source)

func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) SourceOption {
	return func(s *Source) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithRetry bounds reconnects. maxRetries counts attempts after the first one.
func WithRetry(maxRetries uint, initial, ceiling time.Duration) SourceOption {
	return func(s *Source) {
		s.maxRetries = maxRetries
		if initial > 0 {
			s.initialBackoff = initial
		}
		if ceiling > 0 {
			s.maxBackoff = ceiling
		}
	}
}

// WithHandoffRetry bounds in-place retries of one failed handoff before the
// message is nacked.
func WithHandoffRetry(maxRetries int, initial, ceiling time.Duration) SourceOption {
	return func(s *Source) {
		s.handoff.MaxRetries = maxRetries
		if initial > 0 {
			s.handoff.InitialInterval = initial
		}
		if ceiling > 0 {
			s.handoff.MaxInterval = ceiling
		}
	}
}

func WithStatusHook(fn func(up bool, cause error)) SourceOption {
	return func(s *Source) {
		if fn != nil {
			s.onStatus = fn
		}
	}
}

func WithReconnectHook(fn func(err error, wait time.Duration)) SourceOption {
	return func(s *Source) {
		if fn != nil {
			s.onReconnect = fn
		}
	}
}

// Source is the single ingestion path: one upstream subscription, one
// message in flight, handed to the hub in arrival order.
type Source struct {
	hub     registry.Hubber
	builder SubscriberBuilder
	topic   string
	logger  *slog.Logger
	tracer  trace.Tracer

	maxRetries     uint
	initialBackoff time.Duration
	maxBackoff     time.Duration

	handoff middleware.Retry

	onStatus    func(up bool, cause error)
	onReconnect func(err error, wait time.Duration)
}

func NewSource(hub registry.Hubber, builder SubscriberBuilder, topic string, opts ...SourceOption) *Source {
	s := &Source{
		hub:            hub,
		builder:        builder,
		topic:          topic,
		logger:         slog.Default(),
		tracer:         otel.Tracer(TracerName),
		maxRetries:     10,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     30 * time.Second,
		handoff:        NewHandoffRetry(),
		onStatus:       func(bool, error) {},
		onReconnect:    func(error, time.Duration) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run consumes until ctx ends (nil) or the upstream cannot be re-established
// (ErrUpstreamExhausted).
func (s *Source) Run(ctx context.Context) error {
	retry := s.handoff
	retry.Logger = watermill.NewSlogLogger(s.logger)
	handler := Chain(Bind(s.hub, s.topic, s.tracer), DefaultMiddlewares(s.logger, retry)...)

	// A session that delivered anything ends the retry run as a success, so
	// the attempt budget only counts consecutive failures.
	op := func() (int, error) {
		n, err := s.session(ctx, handler)
		if ctx.Err() != nil {
			return n, backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, registry.ErrHubClosed) {
			return n, backoff.Permanent(err)
		}
		if n > 0 {
			s.logger.WarnContext(ctx, "UPSTREAM_LOST", slog.Int("delivered", n), slog.Any("err", err))
			return n, nil
		}
		return 0, err
	}

	for {
		_, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(s.newBackOff()),
			backoff.WithMaxTries(s.maxRetries+1),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, wait time.Duration) {
				s.logger.WarnContext(ctx, "UPSTREAM_RECONNECT",
					slog.String("topic", s.topic),
					slog.Duration("wait", wait),
					slog.Any("err", err),
				)
				s.onReconnect(err, wait)
			}),
		)

		if ctx.Err() != nil {
			return nil
		}
		// [SHUTDOWN] Nothing left to hand off to.
		if errors.Is(err, registry.ErrHubClosed) {
			s.logger.InfoContext(ctx, "SOURCE_STOPPED", slog.String("topic", s.topic), slog.String("reason", "hub closed"))
			return nil
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "UPSTREAM_EXHAUSTED", slog.Uint64("attempts", uint64(s.maxRetries+1)), slog.Any("err", err))
			return fmt.Errorf("%w: %w", ErrUpstreamExhausted, err)
		}
	}
}

// session owns one subscription. It returns how many messages were handed
// to the hub and why the subscription ended.
func (s *Source) session(ctx context.Context, handler message.HandlerFunc) (int, error) {
	sub, err := s.builder.Build()
	if err != nil {
		s.onStatus(false, err)
		return 0, fmt.Errorf("build subscriber: %w", err)
	}
	defer sub.Close()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs, err := sub.Subscribe(sessCtx, s.topic)
	if err != nil {
		s.onStatus(false, err)
		return 0, fmt.Errorf("subscribe %s: %w", s.topic, err)
	}

	s.onStatus(true, nil)
	s.logger.InfoContext(ctx, "SOURCE_READY", slog.String("topic", s.topic))

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			s.onStatus(false, nil)
			return delivered, ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				s.onStatus(false, ErrUpstreamLost)
				return delivered, ErrUpstreamLost
			}

			// [AT_LEAST_ONCE] Ack strictly after the hub took the event.
			if _, err := handler(msg); err != nil {
				msg.Nack()
				if errors.Is(err, registry.ErrHubClosed) {
					s.onStatus(false, err)
					return delivered, err
				}
				continue
			}
			msg.Ack()
			delivered++
		}
	}
}

func (s *Source) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialBackoff
	b.MaxInterval = s.maxBackoff
	return b
}
