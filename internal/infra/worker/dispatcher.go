// File: internal/infra/worker/dispatcher.go
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"email-lookup-service/internal/infra/metrics"
	red "email-lookup-service/internal/infra/redis"
	"email-lookup-service/internal/usecase"
)

var _ usecase.JobDispatcher = (*Dispatcher)(nil)

// Dispatcher routes job ids to worker runs. The happy path goes through the
// redis queue so any consumer can pick the job up; when the queue is
// degraded the job runs in-process instead, detached from the caller, so a
// submission never fails just because redis is down.
type Dispatcher struct {
	queue  *red.DispatchQueue
	pool   *Pool
	worker *BatchWorker
	log    *zerolog.Logger
}

func NewDispatcher(queue *red.DispatchQueue, pool *Pool, worker *BatchWorker, logger *zerolog.Logger) *Dispatcher {
	dlog := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{queue: queue, pool: pool, worker: worker, log: &dlog}
}

// Dispatch triggers a worker run for the job. It never blocks on the run
// itself and never reports failure to the caller; the recovery sweep is the
// safety net if both paths are lost.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) {
	if d.queue.Enqueue(ctx, jobID) {
		metrics.IncDispatch("queue")
		return
	}

	metrics.IncDispatch("fallback")
	d.log.Warn().Str("job_id", jobID).Msg("queue unavailable; running job in-process")
	d.runDetached(jobID)
}

// Start consumes the queue until ctx is cancelled. Meant to be run in a
// goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info().Msg("dispatch consumer started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatch consumer stopping")
			return
		default:
		}

		jobID, err := d.queue.Dequeue(ctx, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error().Err(err).Msg("dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if jobID == "" {
			continue
		}

		id := jobID
		if err := d.pool.Submit(func(taskCtx context.Context) error {
			return d.worker.Run(taskCtx, id)
		}); err != nil {
			// pool saturated; run detached rather than dropping the delivery
			d.log.Warn().Err(err).Str("job_id", id).Msg("pool saturated; running job detached")
			d.runDetached(id)
		}
	}
}

func (d *Dispatcher) runDetached(jobID string) {
	go func() {
		if err := d.worker.Run(context.Background(), jobID); err != nil {
			d.log.Error().Err(err).Str("job_id", jobID).Msg("detached job run failed")
		}
	}()
}
