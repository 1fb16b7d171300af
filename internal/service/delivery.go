package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
)

var ErrUnavailable = errors.New("delivery: hub is shutting down")

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (WebSocket/SSE/Long-poll)
type Deliverer interface {
	Subscribe(ctx context.Context, meta model.SubscriberMeta) (*registry.Subscriber, error)
	Unsubscribe(ctx context.Context, id uuid.UUID) bool
}

// Inspector is the read-only view used by the introspection API.
type Inspector interface {
	Stats() model.HubStats
	Lookup(id uuid.UUID) (model.SubscriberInfo, bool)
}

type DeliveryService struct {
	hub registry.Hubber
}

func NewDeliveryService(hub registry.Hubber) *DeliveryService {
	return &DeliveryService{hub: hub}
}

// [SUBSCRIBE] HANDLES CONNECTION LIFECYCLE INITIATION
func (s *DeliveryService) Subscribe(ctx context.Context, meta model.SubscriberMeta) (*registry.Subscriber, error) {
	sub := s.hub.Subscribe(ctx, meta)

	// A hub past Shutdown hands out subscribers that are already Closed.
	if sub.State() == model.StateClosed {
		return nil, ErrUnavailable
	}
	return sub, nil
}

// [UNSUBSCRIBE] TRIGGERS CLEANUP; SAFE TO CALL MORE THAN ONCE
func (s *DeliveryService) Unsubscribe(ctx context.Context, id uuid.UUID) bool {
	return s.hub.Unsubscribe(ctx, id)
}

func (s *DeliveryService) Stats() model.HubStats {
	return s.hub.Stats()
}

func (s *DeliveryService) Lookup(id uuid.UUID) (model.SubscriberInfo, bool) {
	return s.hub.Lookup(id)
}
