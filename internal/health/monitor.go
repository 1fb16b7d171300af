// Package health tracks whether the upstream stream is being consumed and
// fans status changes out to the gRPC health server and the HTTP health check.
package health

import (
	"sync"
	"time"
)

type Status struct {
	Upstream  bool      `json:"upstream"`
	Driver    string    `json:"driver"`
	ChangedAt time.Time `json:"changed_at"`
	LastError string    `json:"last_error,omitempty"`
}

type Monitor struct {
	mu        sync.RWMutex
	status    Status
	listeners []func(up bool)
}

func NewMonitor(driver string) *Monitor {
	return &Monitor{status: Status{Driver: driver, ChangedAt: time.Now()}}
}

// OnChange registers fn to be called on every upstream transition.
// fn runs synchronously and must not call back into the Monitor.
func (m *Monitor) OnChange(fn func(up bool)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	up := m.status.Upstream
	m.mu.Unlock()

	fn(up)
}

func (m *Monitor) SetUpstream(up bool, cause error) {
	m.mu.Lock()
	changed := m.status.Upstream != up
	m.status.Upstream = up
	if cause != nil {
		m.status.LastError = cause.Error()
	} else if up {
		m.status.LastError = ""
	}
	if changed {
		m.status.ChangedAt = time.Now()
	}
	listeners := m.listeners
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(up)
	}
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
