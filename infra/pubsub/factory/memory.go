package factory

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// memoryFactory hands out one shared in-process channel, so whatever the
// publisher side writes loops straight back into the subscriber side.
type memoryFactory struct {
	ch *gochannel.GoChannel
}

func NewMemoryFactory(logger watermill.LoggerAdapter) Factory {
	return &memoryFactory{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: false,
		}, logger),
	}
}

func (f *memoryFactory) Driver() string { return DriverMemory }

func (f *memoryFactory) BuildSubscriber(*SubscriberConfig) (message.Subscriber, error) {
	return sharedSubscriber{f.ch}, nil
}

func (f *memoryFactory) BuildPublisher(*PublisherConfig) (message.Publisher, error) {
	return sharedPublisher{f.ch}, nil
}

func (f *memoryFactory) Close() error { return f.ch.Close() }

// The channel outlives every handle built from it: only the factory closes it,
// so a reconnecting source can build a fresh subscriber on the same channel.
type sharedSubscriber struct{ *gochannel.GoChannel }

func (sharedSubscriber) Close() error { return nil }

type sharedPublisher struct{ *gochannel.GoChannel }

func (sharedPublisher) Close() error { return nil }
