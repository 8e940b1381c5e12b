package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// 기본 제출 한도: 5분에 5건
const (
	DefaultMax    = 5
	DefaultWindow = 5 * time.Minute
)

// Limiter caps accepted report submissions over a trailing window
type Limiter interface {
	IsRateLimited(ctx context.Context) bool
	RecordSubmission(ctx context.Context)
	Remaining(ctx context.Context) int
}

// Window is an in-memory sliding window over submission timestamps
type Window struct {
	mu     sync.Mutex
	stamps []time.Time
	max    int
	window time.Duration
	clock  clockwork.Clock
}

var _ Limiter = (*Window)(nil)

// NewWindow creates a sliding window limiter
func NewWindow(max int, window time.Duration, clock clockwork.Clock) *Window {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Window{max: max, window: window, clock: clock}
}

// IsRateLimited prunes expired timestamps and reports whether the cap is reached
func (w *Window) IsRateLimited(_ context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	return len(w.stamps) >= w.max
}

// RecordSubmission appends the current time
func (w *Window) RecordSubmission(_ context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	w.stamps = append(w.stamps, w.clock.Now())
}

// Remaining returns how many submissions are still allowed in the window
func (w *Window) Remaining(_ context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	if n := w.max - len(w.stamps); n > 0 {
		return n
	}
	return 0
}

// Take records a submission if the cap allows it, as one step. It returns
// whether it was allowed, the remaining quota and when the oldest stamp expires.
func (w *Window) Take(_ context.Context) (bool, int, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	if len(w.stamps) >= w.max {
		return false, 0, w.stamps[0].Add(w.window)
	}
	w.stamps = append(w.stamps, w.clock.Now())
	return true, w.max - len(w.stamps), w.stamps[0].Add(w.window)
}

func (w *Window) pruneLocked() {
	cutoff := w.clock.Now().Add(-w.window)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept
}
