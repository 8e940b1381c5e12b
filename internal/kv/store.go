// Package kv provides the durable key-value storage the offline queue
// persists into. Every implementation can refuse a write with
// ErrQuotaExceeded, mirroring browser storage quotas.
package kv

import "errors"

// ErrQuotaExceeded is returned when a write would exceed the store's capacity
var ErrQuotaExceeded = errors.New("kv: storage quota exceeded")

// Store is synchronous key-value persistence
type Store interface {
	// Get returns the value and whether the key exists
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}
