/*
Package registry implements the broadcast hub that fans one ordered upstream
stream out to many independently paced subscribers.

Key Architectural Concepts:
  - Single Writer: one ingestion path calls Publish serially. Sequence numbers
    are assigned there, which is what establishes the total order.
  - Bounded Isolation: every subscriber owns a fixed-size ring buffer and an
    overflow policy (drop-oldest, drop-newest, disconnect). A slow consumer
    only ever hurts itself.
  - Copy-On-Write Registry: Publish grabs an immutable snapshot of the
    subscriber set under a short read lock and fans out without holding any
    registry lock, so membership changes never wait on fan-out.
  - Explicit Lifecycle: Active -> Draining -> Closed. Unsubscribe is
    idempotent and wakes the subscriber's drain loop immediately.
*/
package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

// Hubber defines the gateway for subscription management and event fan-out.
type Hubber interface {
	Subscribe(ctx context.Context, meta model.SubscriberMeta) *Subscriber
	Publish(ctx context.Context, in model.Inbound) (model.PublishReport, error)
	Unsubscribe(ctx context.Context, id uuid.UUID) bool
	Lookup(id uuid.UUID) (model.SubscriberInfo, bool)
	Stats() model.HubStats
	Shutdown(ctx context.Context) error
}

var _ Hubber = (*Hub)(nil)

// Hub is the BroadcastHub: registry plus fan-out.
type Hub struct {
	config   hubConfig
	logger   *slog.Logger
	recorder Recorder

	// [INGESTION_ORDER]
	// Serialises publishers. Only Publish takes it; drains never do.
	ingestMu sync.Mutex

	// [REGISTRY]
	// mu guards subs, snapshot and closed. Publish holds the read lock just long
	// enough to assign a sequence and copy the snapshot header.
	mu       sync.RWMutex
	subs     map[uuid.UUID]*Subscriber
	snapshot []*Subscriber
	closed   bool

	headSeq atomic.Uint64

	// [TOMBSTONES] Recently closed subscribers, bounded.
	tombstones *lru.Cache[uuid.UUID, model.SubscriberInfo]

	accepted  atomic.Uint64
	dropped   atomic.Uint64
	evicted   atomic.Uint64
	startedAt time.Time
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			capacity:     DefaultBufferCapacity,
			policy:       model.DropOldest,
			drainTimeout: DefaultDrainTimeout,
			tombstones:   DefaultTombstones,
		},
		logger:    slog.Default(),
		recorder:  nopRecorder{},
		subs:      make(map[uuid.UUID]*Subscriber),
		startedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(h)
	}

	// Size is validated by WithTombstones, so New cannot fail here.
	h.tombstones, _ = lru.New[uuid.UUID, model.SubscriberInfo](h.config.tombstones)

	return h
}

// Subscribe registers a new Active subscriber. It always succeeds; after
// Shutdown the returned subscriber is already Closed.
func (h *Hub) Subscribe(ctx context.Context, meta model.SubscriberMeta) *Subscriber {
	h.mu.Lock()

	// [BASELINE] Taken under the write lock, so no Publish can be between
	// sequence assignment and snapshot capture right now.
	sub := newSubscriber(meta, h.config.capacity, h.config.policy, h.headSeq.Load())

	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub
	}

	h.subs[sub.id] = sub
	h.rebuildLocked()
	total := len(h.subs)
	h.mu.Unlock()

	h.recorder.SubscriberOpened(meta)
	h.logger.DebugContext(ctx, "SUBSCRIBER_REGISTERED",
		slog.String("subscriber_id", sub.id.String()),
		slog.String("transport", meta.Transport),
		slog.Int("total", total),
	)

	return sub
}

// Publish sequences in and offers it to every Active subscriber.
// Each enqueue is O(1) and never waits on a drain loop.
func (h *Hub) Publish(ctx context.Context, in model.Inbound) (model.PublishReport, error) {
	h.ingestMu.Lock()
	defer h.ingestMu.Unlock()

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return model.PublishReport{}, ErrHubClosed
	}
	seq := h.headSeq.Add(1)
	snapshot := h.snapshot
	h.mu.RUnlock()

	ev := model.NewEvent(seq, in)
	report := model.PublishReport{Event: ev}

	// [FAN_OUT] No registry lock held from here on.
	for _, sub := range snapshot {
		res, ok := sub.offer(ev)
		if !ok {
			continue
		}
		report.Visited++

		switch res.Outcome {
		case model.Accepted:
			report.Accepted++
		case model.Dropped:
			report.Dropped++
		case model.Evicted:
			report.Evicted++
			h.onEvicted(ctx, sub)
		}
	}

	h.accepted.Add(uint64(report.Accepted))
	h.dropped.Add(uint64(report.Dropped))
	h.evicted.Add(uint64(report.Evicted))
	h.recorder.Published(report, h.config.policy)

	return report, nil
}

// Unsubscribe closes and removes the subscriber. It is idempotent: only the
// first call for an id returns true.
func (h *Hub) Unsubscribe(ctx context.Context, id uuid.UUID) bool {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		h.rebuildLocked()
	}
	h.mu.Unlock()

	if !ok || !sub.close() {
		return false
	}

	info := sub.Info()
	h.tombstones.Add(id, info)
	h.recorder.SubscriberClosed(info.Meta)

	h.logger.DebugContext(ctx, "SUBSCRIBER_CLOSED",
		slog.String("subscriber_id", id.String()),
		slog.String("transport", info.Meta.Transport),
		slog.Uint64("last_delivered_seq", info.LastDeliveredSeq),
		slog.Uint64("dropped", info.DroppedCount),
	)

	return true
}

// Lookup reports a live subscriber or a recently closed one.
func (h *Hub) Lookup(id uuid.UUID) (model.SubscriberInfo, bool) {
	h.mu.RLock()
	sub, ok := h.subs[id]
	h.mu.RUnlock()

	if ok {
		return sub.Info(), true
	}
	return h.tombstones.Get(id)
}

func (h *Hub) Stats() model.HubStats {
	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()

	stats := model.HubStats{
		Subscribers: len(snapshot),
		HeadSeq:     h.headSeq.Load(),
		Published:   h.headSeq.Load(),
		Accepted:    h.accepted.Load(),
		Dropped:     h.dropped.Load(),
		Evicted:     h.evicted.Load(),
		Policy:      h.config.policy.String(),
		Capacity:    h.config.capacity,
		Uptime:      time.Since(h.startedAt),
	}

	for _, sub := range snapshot {
		switch sub.State() {
		case model.StateActive:
			stats.Active++
		case model.StateDraining:
			stats.Draining++
		}
	}

	return stats
}

// Shutdown closes every subscriber. Drain loops wake with ErrSubscriberClosed.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := h.snapshot
	h.subs = make(map[uuid.UUID]*Subscriber)
	h.snapshot = nil
	h.mu.Unlock()

	for _, sub := range subs {
		if sub.close() {
			info := sub.Info()
			h.tombstones.Add(sub.id, info)
			h.recorder.SubscriberClosed(info.Meta)
		}
	}

	h.logger.InfoContext(ctx, "HUB_SHUTDOWN", slog.Int("closed_subscribers", len(subs)))
	return nil
}

// onEvicted runs when the disconnect policy moved sub to Draining.
// The transport is expected to drain and Unsubscribe; the timer covers
// transports that never do.
func (h *Hub) onEvicted(ctx context.Context, sub *Subscriber) {
	h.recorder.SubscriberEvicted(sub.meta)
	h.logger.WarnContext(ctx, "SUBSCRIBER_EVICTED",
		slog.String("subscriber_id", sub.id.String()),
		slog.String("transport", sub.meta.Transport),
		slog.Int("capacity", sub.capacity),
	)

	if h.config.drainTimeout <= 0 {
		return
	}

	id := sub.id
	detached := context.WithoutCancel(ctx)
	time.AfterFunc(h.config.drainTimeout, func() {
		if h.Unsubscribe(detached, id) {
			h.logger.WarnContext(detached, "SUBSCRIBER_DRAIN_TIMEOUT", slog.String("subscriber_id", id.String()))
		}
	})
}

// rebuildLocked replaces the fan-out snapshot. In-flight publishes keep the
// old slice, which is never mutated. Requires h.mu held for writing.
func (h *Hub) rebuildLocked() {
	next := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		next = append(next, sub)
	}
	h.snapshot = next
}
