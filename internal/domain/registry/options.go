package registry

import (
	"log/slog"
	"time"

	"github.com/webitel/event-fanout-service/internal/domain/model"
)

const (
	DefaultBufferCapacity = 256
	DefaultDrainTimeout   = 10 * time.Second
	DefaultTombstones     = 4096
)

type hubConfig struct {
	capacity     int
	policy       model.OverflowPolicy
	drainTimeout time.Duration
	tombstones   int
}

// Option defines a functional configuration type for the Hub.
type Option func(*Hub)

// WithBufferCapacity sets the [BACKPRESSURE] threshold: how many events a
// single subscriber may hold before its overflow policy kicks in.
func WithBufferCapacity(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.config.capacity = n
		}
	}
}

// WithOverflowPolicy selects the rule applied to a full subscriber buffer.
func WithOverflowPolicy(p model.OverflowPolicy) Option {
	return func(h *Hub) {
		h.config.policy = p
	}
}

// WithDrainTimeout bounds how long an evicted subscriber may stay Draining
// before the Hub closes it on the transport's behalf. Zero disables the timer.
func WithDrainTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.config.drainTimeout = d
	}
}

// WithTombstones sets how many closed subscribers stay visible to Lookup.
func WithTombstones(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.config.tombstones = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(h *Hub) {
		if r != nil {
			h.recorder = r
		}
	}
}
