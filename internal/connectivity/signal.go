package connectivity

import (
	"sync"
)

// Signal reports whether the network is currently reachable
type Signal interface {
	IsOnline() bool
}

// Publisher receives connectivity transitions. *events.Bus implements it.
type Publisher interface {
	PublishOnline(source string)
	PublishOffline(source string)
}

// Manual is a Signal driven by the host, for hosts that already know their
// connectivity state.
type Manual struct {
	mu     sync.RWMutex
	online bool
	pub    Publisher
}

// NewManual 생성자. pub may be nil.
func NewManual(online bool, pub Publisher) *Manual {
	return &Manual{online: online, pub: pub}
}

// IsOnline implements Signal
func (m *Manual) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline updates the state and publishes the transition, if any
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed || m.pub == nil {
		return
	}
	if online {
		m.pub.PublishOnline("manual")
	} else {
		m.pub.PublishOffline("manual")
	}
}
