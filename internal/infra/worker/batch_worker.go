// File: internal/infra/worker/batch_worker.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/adapter"
	"email-lookup-service/internal/domain/ports/repository"
	"email-lookup-service/internal/infra/metrics"
	red "email-lookup-service/internal/infra/redis"
)

// lockTTL bounds how long a crashed worker can hold a job's lock; it should
// stay at or above the recovery staleness threshold.
const lockTTL = 10 * time.Minute

// BatchWorker drains one job's items in index order, resuming from the
// persisted cursor. Invoking it twice for the same job is safe: the
// pending->processing claim admits a single run, and terminal items are
// never reprocessed.
type BatchWorker struct {
	jobs    repository.JobRepository
	lookup  adapter.LookupAdapter
	locker  red.Locker
	limiter *rate.Limiter
	log     *zerolog.Logger
}

func NewBatchWorker(jobs repository.JobRepository, lookup adapter.LookupAdapter, locker red.Locker, itemInterval time.Duration, logger *zerolog.Logger) *BatchWorker {
	wlog := logger.With().Str("component", "BatchWorker").Logger()
	return &BatchWorker{
		jobs:    jobs,
		lookup:  lookup,
		locker:  locker,
		limiter: rate.NewLimiter(rate.Every(itemInterval), 1),
		log:     &wlog,
	}
}

// Run processes the job until all items are terminal, the job is stopped, or
// an infrastructure fault aborts it. Per-item lookup failures never abort the
// batch; only repeated store failures do.
func (w *BatchWorker) Run(ctx context.Context, jobID string) error {
	token, err := w.locker.TryLock(ctx, red.JobLockKey(jobID), lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrJobClaimed) {
			w.log.Debug().Str("job_id", jobID).Msg("another worker holds the job lock; skipping")
			return nil
		}
		// Lock backend down. That is exactly when the direct fallback runs,
		// so proceed without the lock; the pending->processing claim below
		// still guarantees a single run.
		w.log.Warn().Err(err).Str("job_id", jobID).Msg("job lock unavailable; relying on the claim alone")
		token = ""
	}
	if token != "" {
		defer func() { _ = w.locker.Unlock(context.Background(), red.JobLockKey(jobID), token) }()
	}

	job, err := w.jobs.ClaimPending(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// deleted or bogus id from a stale queue entry
			w.log.Debug().Str("job_id", jobID).Msg("job gone; nothing to run")
			return nil
		case errors.Is(err, domain.ErrJobClaimed):
			w.log.Debug().Str("job_id", jobID).Msg("job not pending; duplicate dispatch skipped")
			return nil
		default:
			return fmt.Errorf("claim job: %w", err)
		}
	}

	w.log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).
		Int("cursor", job.Cursor).Int("items", len(job.Items)).Msg("job run started")

	if err := w.drain(ctx, job); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// graceful shutdown, not a fault; the job stays processing and
			// the recovery sweep re-dispatches it
			w.log.Info().Str("job_id", job.ID).Int("cursor", job.Cursor).Msg("run interrupted; job left for recovery")
			return err
		}
		// the one case where the whole job aborts rather than one item
		w.failJob(job, err)
		return err
	}
	return nil
}

func (w *BatchWorker) drain(ctx context.Context, job *model.Job) error {
	for i := job.Cursor; i < len(job.Items); i++ {
		fresh, err := w.jobs.FindByID(ctx, nil, job.ID)
		if err != nil {
			return fmt.Errorf("re-read job: %w", err)
		}
		if fresh.Status != model.JobStatusProcessing {
			// stopped (or reset) underneath us; current progress is already persisted
			w.log.Info().Str("job_id", job.ID).Str("status", string(fresh.Status)).Msg("job no longer active; run ends")
			return nil
		}

		// a processing item past the cursor was left behind by a crashed
		// run; the claim guarantees no other worker holds it, so redo it
		if st := job.Items[i].Status; st != model.ItemStatusPending && st != model.ItemStatusProcessing {
			continue
		}

		// make in-flight progress visible to pollers before the slow call
		job.Items[i].Status = model.ItemStatusProcessing
		if err := w.jobs.Update(ctx, nil, job.ID, repository.JobUpdate{Items: job.Items}); err != nil {
			return fmt.Errorf("mark item processing: %w", err)
		}

		// pacing toward the lookup provider, not a correctness requirement
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}

		status, result, reason := w.lookupItem(ctx, job.Kind, job.Items[i].Input)
		if err := job.RecordOutcome(i, status, result, reason); err != nil {
			return fmt.Errorf("record outcome: %w", err)
		}
		metrics.IncJobItem(string(job.Kind), string(status))

		// item, cursor and aggregates move together so a crash here leaves
		// the job resumable at a consistent index
		if err := w.jobs.Update(ctx, nil, job.ID, repository.JobUpdate{
			Items:          job.Items,
			Cursor:         &job.Cursor,
			ProcessedCount: &job.ProcessedCount,
			SuccessCount:   &job.SuccessCount,
			FailCount:      &job.FailCount,
		}); err != nil {
			return fmt.Errorf("persist item outcome: %w", err)
		}
	}

	completed := model.JobStatusCompleted
	now := time.Now()
	if err := w.jobs.Update(ctx, nil, job.ID, repository.JobUpdate{
		Status:      &completed,
		CompletedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	metrics.IncJobFinished(string(job.Kind), string(completed))
	w.log.Info().Str("job_id", job.ID).
		Int("processed", job.ProcessedCount).Int("success", job.SuccessCount).Int("fail", job.FailCount).
		Msg("job completed")
	return nil
}

// lookupItem calls the external capability and maps its response onto the
// item vocabulary. Adapter faults come back as an error outcome with a
// generic reason; they never bubble up.
func (w *BatchWorker) lookupItem(ctx context.Context, kind model.JobKind, in model.ItemInput) (model.ItemStatus, *model.ItemResult, string) {
	switch kind {
	case model.JobKindFind:
		res, err := w.lookup.Find(ctx, adapter.FindRequest{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Domain:    in.Domain,
			Role:      in.Role,
		})
		if err != nil {
			return model.ItemStatusError, nil, fmt.Sprintf("lookup failed: %v", err)
		}
		if res.Status == adapter.LookupStatusError {
			return model.ItemStatusError, nil, res.ErrorReason
		}
		if res.Email == "" {
			return model.ItemStatusNotFound, nil, ""
		}
		return model.ItemStatusFound, &model.ItemResult{
			Email:      res.Email,
			Confidence: res.Confidence,
			Flags:      res.Flags,
		}, ""

	case model.JobKindVerify:
		res, err := w.lookup.Verify(ctx, in.Email)
		if err != nil {
			return model.ItemStatusError, nil, fmt.Sprintf("lookup failed: %v", err)
		}
		if res.Status == adapter.LookupStatusError {
			return model.ItemStatusError, nil, res.ErrorReason
		}
		return model.ItemStatus(res.Status), &model.ItemResult{
			Confidence:  res.Confidence,
			Deliverable: res.Deliverable,
			Flags:       res.Flags,
		}, ""

	default:
		return model.ItemStatusError, nil, fmt.Sprintf("unsupported job kind %q", kind)
	}
}

// failJob records an infrastructure abort. The original context may already
// be dead, so the final write uses a fresh one.
func (w *BatchWorker) failJob(job *model.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	failed := model.JobStatusFailed
	msg := cause.Error()
	if err := w.jobs.Update(ctx, nil, job.ID, repository.JobUpdate{
		Status:       &failed,
		ErrorMessage: &msg,
	}); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("could not record job failure")
		return
	}
	metrics.IncJobFinished(string(job.Kind), string(failed))
	w.log.Error().Err(cause).Str("job_id", job.ID).Msg("job aborted")
}
