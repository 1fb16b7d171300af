package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

// Subscriber is one downstream connection's bounded view of the broadcast stream.
//
// The Hub owns it; transports hold the pointer only to drain (Next/TryNext)
// and to wait for termination (Stopped/Done).
type Subscriber struct {
	// [IDENTITY]
	id        uuid.UUID
	meta      model.SubscriberMeta
	createdAt time.Time

	// [BACKPRESSURE_CONTRACT]
	policy   model.OverflowPolicy
	capacity int

	// [CONCURRENCY_CONTROL]
	// Guards everything below. Held only for O(1) ring operations, never across I/O.
	mu sync.Mutex

	// [RING_BUFFER]
	// Fixed-size circular queue. Released (nil) on Close.
	buf  []*model.Event
	head int
	size int

	state         model.SubscriberState
	lastDelivered uint64
	dropped       uint64
	evicted       bool
	closedAt      time.Time

	// [WAKEUP_SIGNALS]
	// notify is a 1-slot doorbell rung on every successful enqueue.
	// stopped closes when the subscriber leaves Active, done when it reaches Closed.
	notify  chan struct{}
	stopped chan struct{}
	done    chan struct{}
}

func newSubscriber(meta model.SubscriberMeta, capacity int, policy model.OverflowPolicy, headSeq uint64) *Subscriber {
	return &Subscriber{
		id:            uuid.New(),
		meta:          meta,
		createdAt:     time.Now(),
		policy:        policy,
		capacity:      capacity,
		buf:           make([]*model.Event, capacity),
		state:         model.StateActive,
		lastDelivered: headSeq,
		notify:        make(chan struct{}, 1),
		stopped:       make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (s *Subscriber) ID() uuid.UUID              { return s.id }
func (s *Subscriber) Meta() model.SubscriberMeta { return s.meta }

// Stopped is closed once the subscriber stops accepting events (Draining or Closed).
func (s *Subscriber) Stopped() <-chan struct{} { return s.stopped }

// Done is closed once the subscriber is Closed and its buffer released.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) State() model.SubscriberState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a consistent snapshot for introspection.
func (s *Subscriber) Info() model.SubscriberInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.SubscriberInfo{
		ID:               s.id,
		State:            s.state,
		Policy:           s.policy,
		Capacity:         s.capacity,
		Buffered:         s.size,
		LastDeliveredSeq: s.lastDelivered,
		DroppedCount:     s.dropped,
		CreatedAt:        s.createdAt,
		ClosedAt:         s.closedAt,
		Evicted:          s.evicted,
		Meta:             s.meta,
	}
}

// offer enqueues ev. It never blocks beyond the subscriber mutex.
// ok is false when the subscriber is no longer Active and was not visited.
func (s *Subscriber) offer(ev *model.Event) (res model.EnqueueResult, ok bool) {
	s.mu.Lock()

	// [LIFECYCLE_GATE] Draining and Closed subscribers accept nothing.
	if s.state != model.StateActive {
		s.mu.Unlock()
		return model.EnqueueResult{}, false
	}

	if s.size < s.capacity {
		s.push(ev)
		s.mu.Unlock()
		s.ring()
		return model.EnqueueResult{Outcome: model.Accepted}, true
	}

	// [OVERFLOW] Buffer is full: apply the configured policy to this subscriber only.
	switch s.policy {
	case model.DropOldest:
		old := s.pop()
		s.push(ev)
		s.dropped++
		s.mu.Unlock()
		s.ring()
		return model.EnqueueResult{Outcome: model.Accepted, Displaced: old.Seq}, true

	case model.Disconnect:
		s.state = model.StateDraining
		s.evicted = true
		close(s.stopped)
		s.mu.Unlock()
		return model.EnqueueResult{Outcome: model.Evicted}, true

	default: // DropNewest
		s.dropped++
		s.mu.Unlock()
		return model.EnqueueResult{Outcome: model.Dropped}, true
	}
}

// Next blocks until an event is buffered and returns it in sequence order.
// It returns ErrSubscriberClosed once the subscriber left Active and the
// buffer is empty, or ctx.Err() when ctx ends first.
func (s *Subscriber) Next(ctx context.Context) (*model.Event, error) {
	for {
		s.mu.Lock()
		if s.size > 0 {
			ev := s.pop()
			s.lastDelivered = ev.Seq
			s.mu.Unlock()
			return ev, nil
		}
		state := s.state
		s.mu.Unlock()

		if state != model.StateActive {
			return nil, ErrSubscriberClosed
		}

		select {
		case <-s.notify:
		case <-s.stopped:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryNext pops the next buffered event without waiting.
func (s *Subscriber) TryNext() (*model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size == 0 {
		return nil, false
	}
	ev := s.pop()
	s.lastDelivered = ev.Seq
	return ev, true
}

// close moves the subscriber to Closed and releases the buffer.
// It reports false when the subscriber was already Closed.
func (s *Subscriber) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.StateClosed {
		return false
	}
	if s.state == model.StateActive {
		close(s.stopped)
	}

	s.state = model.StateClosed
	s.closedAt = time.Now()
	s.buf = nil
	s.head, s.size = 0, 0
	close(s.done)
	return true
}

func (s *Subscriber) ring() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// push and pop require s.mu.
func (s *Subscriber) push(ev *model.Event) {
	s.buf[(s.head+s.size)%s.capacity] = ev
	s.size++
}

func (s *Subscriber) pop() *model.Event {
	ev := s.buf[s.head]
	s.buf[s.head] = nil
	s.head = (s.head + 1) % s.capacity
	s.size--
	return ev
}
