package model

import "time"

// HubStats is the introspection snapshot served by the stats endpoint and the `top` dashboard.
type HubStats struct {
	Subscribers int           `json:"subscribers"`
	Active      int           `json:"active"`
	Draining    int           `json:"draining"`
	HeadSeq     uint64        `json:"head_seq"`
	Published   uint64        `json:"published"`
	Accepted    uint64        `json:"accepted"`
	Dropped     uint64        `json:"dropped"`
	Evicted     uint64        `json:"evicted"`
	Policy      string        `json:"policy"`
	Capacity    int           `json:"capacity"`
	Uptime      time.Duration `json:"uptime"`
}

// PublishReport summarises one fan-out round.
type PublishReport struct {
	Event    *Event
	Visited  int
	Accepted int
	Dropped  int
	Evicted  int
}
