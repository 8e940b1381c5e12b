package delivery

import (
	"context"
	"errors"

	"github.com/damoang/angple-bugreport/internal/connectivity"
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/queue"
	"github.com/rs/zerolog"
)

// Outcome 전송 결과
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeQueued    Outcome = "queued"
	OutcomeRejected  Outcome = "rejected"
	// OutcomeDropped means the device was offline and the queue could not
	// persist the report.
	OutcomeDropped Outcome = "dropped"
)

// Accepted reports whether the submission counts as taken by the pipeline
func (o Outcome) Accepted() bool {
	return o == OutcomeDelivered || o == OutcomeQueued
}

// Deliverer decides between the network and the offline queue
type Deliverer struct {
	transport Transport
	queue     *queue.Queue
	signal    connectivity.Signal
	logger    zerolog.Logger
}

// NewDeliverer 생성자
func NewDeliverer(transport Transport, q *queue.Queue, signal connectivity.Signal, logger zerolog.Logger) *Deliverer {
	return &Deliverer{transport: transport, queue: q, signal: signal, logger: logger}
}

// Deliver sends payload once. Offline, it goes straight to the queue without
// touching the network. Online failures are returned as OutcomeRejected and
// nothing is queued.
func (d *Deliverer) Deliver(ctx context.Context, payload domain.BugReportPayload) (Outcome, error) {
	log := d.logger.With().Str("report_id", payload.ReportID).Logger()

	if !d.signal.IsOnline() {
		if err := d.queue.Enqueue(payload); err != nil {
			log.Error().Err(err).Msg("offline report could not be queued")
			return OutcomeDropped, err
		}
		log.Info().Msg("offline, report queued")
		return OutcomeQueued, nil
	}

	if err := d.transport.Send(ctx, payload); err != nil {
		log.Warn().Err(err).Msg("report delivery rejected")
		return OutcomeRejected, err
	}
	log.Info().Msg("report delivered")
	return OutcomeDelivered, nil
}

// Flush replays the offline queue through the transport. It is a no-op while
// offline or when another flush is running.
func (d *Deliverer) Flush(ctx context.Context) (queue.FlushResult, error) {
	if !d.signal.IsOnline() {
		return queue.FlushResult{}, nil
	}
	res, err := d.queue.Flush(ctx, d.transport.Send)
	if errors.Is(err, queue.ErrFlushInProgress) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if res.Attempted > 0 {
		d.logger.Info().
			Int("attempted", res.Attempted).
			Int("delivered", res.Delivered).
			Int("requeued", res.Requeued).
			Msg("offline queue flushed")
	}
	return res, nil
}
