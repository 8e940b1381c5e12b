package trail

import (
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/jonboulle/clockwork"
)

// DefaultCapacity 최근 사용자 행동 보관 개수
const DefaultCapacity = 10

// URLSource returns the page URL current at the time of the call
type URLSource func() string

// Recorder keeps the most recent user actions for diagnostic context
type Recorder struct {
	ring  *Ring[domain.UserAction]
	clock clockwork.Clock
	url   URLSource
}

// NewRecorder creates a recorder. A nil clock uses the real clock and a nil
// url source leaves unset URLs empty.
func NewRecorder(capacity int, clock clockwork.Clock, url URLSource) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if url == nil {
		url = func() string { return "" }
	}
	return &Recorder{
		ring:  NewRing[domain.UserAction](capacity),
		clock: clock,
		url:   url,
	}
}

// Record stamps the action with the current time and URL when missing and
// appends it to the trail.
func (r *Recorder) Record(action domain.UserAction) {
	if action.Timestamp == 0 {
		action.Timestamp = r.clock.Now().UnixMilli()
	}
	if action.URL == "" {
		action.URL = r.url()
	}
	r.ring.Push(action)
}

// Snapshot returns the retained actions, oldest first
func (r *Recorder) Snapshot() []domain.UserAction {
	return r.ring.Snapshot()
}

// Len returns the number of retained actions
func (r *Recorder) Len() int {
	return r.ring.Len()
}
