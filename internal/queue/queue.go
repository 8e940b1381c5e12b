package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/kv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultKey 오프라인 큐 저장 키
const DefaultKey = "angple:bug-report-queue"

var (
	// ErrDropped means the entry could not be persisted even after evicting the oldest one
	ErrDropped = errors.New("queue: entry dropped, storage full")
	// ErrFlushInProgress is returned when another flush is already running
	ErrFlushInProgress = errors.New("queue: flush already in progress")

	errCorrupt = errors.New("queue: stored list is not valid JSON")
)

// DeliverFunc sends one queued payload; a nil error means delivered
type DeliverFunc func(ctx context.Context, payload domain.BugReportPayload) error

// FlushResult 플러시 결과
type FlushResult struct {
	Attempted int
	Delivered int
	Requeued  int
}

// Hooks are optional observers for queue events
type Hooks struct {
	OnEvict func(evicted domain.QueueEntry)
	OnDepth func(depth int)
}

// Queue persists undeliverable reports as one ordered JSON list under a
// single key and replays them through a DeliverFunc.
type Queue struct {
	mu       sync.Mutex
	store    kv.Store
	key      string
	clock    clockwork.Clock
	logger   zerolog.Logger
	hooks    Hooks
	flushing bool
}

// New creates a queue over store
func New(store kv.Store, key string, clock clockwork.Clock, logger zerolog.Logger, hooks Hooks) *Queue {
	if key == "" {
		key = DefaultKey
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Queue{store: store, key: key, clock: clock, logger: logger, hooks: hooks}
}

// Enqueue appends payload to the end of the queue. When storage refuses
// the write, the oldest entry is evicted and the write retried once; if
// that fails too the new entry is dropped and ErrDropped returned.
func (q *Queue) Enqueue(payload domain.BugReportPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.loadLocked()
	switch {
	case errors.Is(err, errCorrupt):
		q.logger.Warn().Err(err).Msg("offline queue corrupt, starting fresh")
		entries = nil
	case err != nil:
		// 읽기 실패 시 덮어쓰지 않는다
		q.logger.Error().Err(err).Str("report_id", payload.ReportID).Msg("offline queue unreadable, report dropped")
		return fmt.Errorf("%w: %v", ErrDropped, err)
	}
	entries = append(entries, domain.QueueEntry{Payload: payload, QueuedAt: q.clock.Now().UTC()})

	entries, err = q.saveEvictingLocked(entries)
	if err != nil {
		q.logger.Error().Err(err).Str("report_id", payload.ReportID).Msg("offline queue write failed, report dropped")
		return fmt.Errorf("%w: %v", ErrDropped, err)
	}

	q.notifyDepth(len(entries))
	return nil
}

// Flush attempts every queued entry once, top to bottom. Delivered entries
// are removed; failed ones move to the end of the queue, behind anything
// enqueued while the flush was running.
func (q *Queue) Flush(ctx context.Context, deliver DeliverFunc) (FlushResult, error) {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return FlushResult{}, ErrFlushInProgress
	}
	snapshot, err := q.loadLocked()
	if err != nil {
		q.mu.Unlock()
		return FlushResult{}, err
	}
	if len(snapshot) == 0 {
		q.mu.Unlock()
		return FlushResult{}, nil
	}
	q.flushing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	var (
		result FlushResult
		failed []domain.QueueEntry
		done   = make(map[string]bool, len(snapshot))
	)
	for _, entry := range snapshot {
		if ctx.Err() != nil {
			break
		}
		result.Attempted++
		done[entry.Payload.ReportID] = true

		if err := deliver(ctx, entry.Payload); err != nil {
			entry.Attempts++
			failed = append(failed, entry)
			q.logger.Warn().Err(err).
				Str("report_id", entry.Payload.ReportID).
				Int("attempts", entry.Attempts).
				Msg("queued report delivery failed, requeued")
			continue
		}
		result.Delivered++
	}
	result.Requeued = len(failed)

	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.loadLocked()
	if err != nil {
		return result, err
	}
	remaining := make([]domain.QueueEntry, 0, len(current))
	for _, e := range current {
		if !done[e.Payload.ReportID] {
			remaining = append(remaining, e)
		}
	}
	remaining = append(remaining, failed...)

	remaining, err = q.saveEvictingLocked(remaining)
	if err != nil {
		return result, fmt.Errorf("queue: rewrite after flush: %w", err)
	}
	q.notifyDepth(len(remaining))
	return result, nil
}

// Entries returns the queued entries in flush order
func (q *Queue) Entries() ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

// Len returns the queue depth; unreadable storage counts as empty
func (q *Queue) Len() int {
	entries, err := q.Entries()
	if err != nil {
		return 0
	}
	return len(entries)
}

func (q *Queue) loadLocked() ([]domain.QueueEntry, error) {
	data, ok, err := q.store.Get(q.key)
	if err != nil {
		return nil, fmt.Errorf("queue: load: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var entries []domain.QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return entries, nil
}

// saveEvictingLocked writes entries; on a quota error the oldest entry is
// evicted and the write retried once. It returns what was persisted.
func (q *Queue) saveEvictingLocked(entries []domain.QueueEntry) ([]domain.QueueEntry, error) {
	err := q.saveLocked(entries)
	if errors.Is(err, kv.ErrQuotaExceeded) && len(entries) > 1 {
		evicted := entries[0]
		entries = entries[1:]
		q.logger.Warn().
			Str("report_id", evicted.Payload.ReportID).
			Msg("offline queue full, evicting oldest report")
		if q.hooks.OnEvict != nil {
			q.hooks.OnEvict(evicted)
		}
		err = q.saveLocked(entries)
	}
	return entries, err
}

func (q *Queue) saveLocked(entries []domain.QueueEntry) error {
	if len(entries) == 0 {
		return q.store.Remove(q.key)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("queue: encode: %w", err)
	}
	return q.store.Set(q.key, data)
}

func (q *Queue) notifyDepth(n int) {
	if q.hooks.OnDepth != nil {
		q.hooks.OnDepth(n)
	}
}
