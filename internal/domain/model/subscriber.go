package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriberState is the lifecycle position of a single downstream connection.
type SubscriberState int32

const (
	// [ZERO_VALUE_GUARD] States start from 1 so an uninitialised value is never Active.
	StateActive SubscriberState = iota + 1
	StateDraining
	StateClosed
)

func (s SubscriberState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s SubscriberState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OverflowPolicy decides what happens when a subscriber buffer is full at enqueue time.
type OverflowPolicy int16

const (
	// DropOldest evicts the head of the buffer. The consumer observes a sequence gap.
	DropOldest OverflowPolicy = iota + 1
	// DropNewest discards the incoming event for that subscriber only.
	DropNewest
	// Disconnect moves the subscriber to Draining; the transport finishes the job.
	Disconnect
)

// ErrUnknownPolicy is returned by ParseOverflowPolicy for unsupported names.
var ErrUnknownPolicy = errors.New("unknown overflow policy")

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case Disconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

func (p OverflowPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParseOverflowPolicy accepts the configuration spelling of a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop-oldest", "drop_oldest", "oldest":
		return DropOldest, nil
	case "drop-newest", "drop_newest", "newest":
		return DropNewest, nil
	case "disconnect":
		return Disconnect, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// EnqueueOutcome is the result of offering one event to one subscriber.
type EnqueueOutcome int8

const (
	// Accepted: the event is buffered. Under DropOldest the head may have been displaced.
	Accepted EnqueueOutcome = iota + 1
	// Dropped: the event was discarded for this subscriber only.
	Dropped
	// Evicted: the buffer overflowed under Disconnect and the subscriber left Active.
	Evicted
)

func (o EnqueueOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Dropped:
		return "dropped"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// EnqueueResult carries the outcome and, for DropOldest, the sequence that was displaced.
type EnqueueResult struct {
	Outcome EnqueueOutcome
	// Displaced is the Seq removed from the buffer head, zero when nothing was displaced.
	Displaced uint64
}

// SubscriberMeta describes the transport behind a subscriber.
// Exported for transport and analytics layers.
type SubscriberMeta struct {
	Transport  string `json:"transport"` // ws, sse, lp
	RemoteAddr string `json:"remote_addr,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// SubscriberInfo is a point-in-time copy of a subscriber's state.
type SubscriberInfo struct {
	ID               uuid.UUID       `json:"id"`
	State            SubscriberState `json:"state"`
	Policy           OverflowPolicy  `json:"policy"`
	Capacity         int             `json:"capacity"`
	Buffered         int             `json:"buffered"`
	LastDeliveredSeq uint64          `json:"last_delivered_seq"`
	DroppedCount     uint64          `json:"dropped_count"`
	CreatedAt        time.Time       `json:"created_at"`
	ClosedAt         time.Time       `json:"closed_at,omitzero"`
	// Evicted marks a subscriber removed for overflowing under the
	// disconnect policy. It survives the move to Closed.
	Evicted bool           `json:"evicted,omitempty"`
	Meta    SubscriberMeta `json:"meta"`
}
