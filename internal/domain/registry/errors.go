package registry

import "errors"

var (
	// ErrSubscriberClosed is returned by Subscriber.Next once nothing more will be delivered.
	ErrSubscriberClosed = errors.New("registry: subscriber closed")

	// ErrHubClosed is returned by Publish after Shutdown.
	ErrHubClosed = errors.New("registry: hub closed")
)
