package registry

import "github.com/webitel/event-fanout-service/internal/domain/model"

// Recorder receives hub outcomes for metrics. Implementations must be cheap
// and non-blocking: they run on the ingestion path.
type Recorder interface {
	Published(report model.PublishReport, policy model.OverflowPolicy)
	SubscriberOpened(meta model.SubscriberMeta)
	SubscriberEvicted(meta model.SubscriberMeta)
	SubscriberClosed(meta model.SubscriberMeta)
}

type nopRecorder struct{}

func (nopRecorder) Published(model.PublishReport, model.OverflowPolicy) {}
func (nopRecorder) SubscriberOpened(model.SubscriberMeta)               {}
func (nopRecorder) SubscriberEvicted(model.SubscriberMeta)              {}
func (nopRecorder) SubscriberClosed(model.SubscriberMeta)               {}
