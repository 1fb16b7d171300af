package wsmarshaller

// ConnectedPayload greets a new WebSocket subscriber.
type ConnectedPayload struct {
	SubscriberID string `json:"subscriber_id"`
	Policy       string `json:"policy"`
	Capacity     int    `json:"capacity"`
	HeadSeq      uint64 `json:"head_seq"`
}

// DisconnectedPayload is the last frame of a session the server ends.
type DisconnectedPayload struct {
	Reason           string `json:"reason"`
	LastDeliveredSeq uint64 `json:"last_delivered_seq"`
	Dropped          uint64 `json:"dropped"`
}
