package trail

import "sync"

// Ring is a fixed-capacity FIFO buffer. Once full, each write evicts the
// oldest entry; read order is always oldest → newest.
type Ring[T any] struct {
	mu       sync.RWMutex
	entries  []T
	capacity int
	head     int // index of the next write once full
}

// NewRing creates a ring with the given capacity (minimum 1)
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest entry when at capacity
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, v)
		return
	}
	r.entries[r.head] = v
	r.head = (r.head + 1) % r.capacity
}

// Snapshot returns a copy of the retained entries in insertion order
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.entries))
	if len(r.entries) < r.capacity {
		return append(out, r.entries...)
	}
	out = append(out, r.entries[r.head:]...)
	return append(out, r.entries[:r.head]...)
}

// Len returns the number of retained entries
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

