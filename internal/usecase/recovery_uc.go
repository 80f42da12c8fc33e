// File: internal/usecase/recovery_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/repository"
	"email-lookup-service/internal/infra/logging"
	"email-lookup-service/internal/infra/metrics"
)

// StalledReason marks jobs whose retry budget ran out while stuck in processing.
const StalledReason = "stalled"

// Compile-time check
var _ RecoveryUseCase = (*recoveryUC)(nil)

type RecoveryUseCase interface {
	// RecoverStuckJobs finds jobs sitting in 'processing' with no update for
	// longer than the staleness threshold. Under the retry budget they are
	// reset to 'pending' (cursor untouched) and re-dispatched; over budget
	// they are failed with StalledReason. Returns how many jobs were handled.
	RecoverStuckJobs(ctx context.Context) (int, error)
}

type recoveryUC struct {
	jobs        repository.JobRepository
	txm         repository.TransactionManager
	dispatcher  JobDispatcher
	staleness   time.Duration
	maxAttempts int
	log         *zerolog.Logger
}

func NewRecoveryUseCase(jobs repository.JobRepository, txm repository.TransactionManager, dispatcher JobDispatcher, staleness time.Duration, maxAttempts int, logger *zerolog.Logger) *recoveryUC {
	rlog := logger.With().Str("component", "RecoveryUC").Logger()
	return &recoveryUC{
		jobs:        jobs,
		txm:         txm,
		dispatcher:  dispatcher,
		staleness:   staleness,
		maxAttempts: maxAttempts,
		log:         &rlog,
	}
}

func (r *recoveryUC) RecoverStuckJobs(ctx context.Context) (int, error) {
	defer logging.TraceDuration(r.log, "RecoveryUC.RecoverStuckJobs")()

	stale, err := r.jobs.ListStale(ctx, nil, model.JobStatusProcessing, time.Now().Add(-r.staleness))
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}

	handled := 0
	for _, job := range stale {
		outcome, attempts, err := r.recoverOne(ctx, job.ID)
		if err != nil {
			r.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to recover stale job")
			continue
		}

		switch outcome {
		case "stalled":
			metrics.IncRecovery("stalled")
			r.log.Warn().Str("job_id", job.ID).Int("attempts", attempts).Msg("retry budget exhausted; job stalled")
			handled++
		case "reset":
			metrics.IncRecovery("reset")
			r.log.Info().Str("job_id", job.ID).Int("cursor", job.Cursor).Int("attempts", attempts).Msg("stale job reset; re-dispatching")
			// Without a re-dispatch the job would just go stale again.
			r.dispatcher.Dispatch(ctx, job.ID)
			handled++
		}
	}
	return handled, nil
}

// recoverOne re-reads and updates the job inside one transaction. The locked
// read blocks a concurrent sweep until this one commits, so two overlapping
// sweeps cannot both bump the attempt counter.
func (r *recoveryUC) recoverOne(ctx context.Context, jobID string) (outcome string, attempts int, err error) {
	err = r.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		job, err := r.jobs.FindByIDForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != model.JobStatusProcessing {
			// a worker resumed it, or another sweep got here first
			return nil
		}

		attempts = job.Attempts + 1
		if attempts > r.maxAttempts {
			failed := model.JobStatusFailed
			reason := StalledReason
			outcome = "stalled"
			return r.jobs.Update(ctx, tx, jobID, repository.JobUpdate{
				Status:       &failed,
				Attempts:     &attempts,
				ErrorMessage: &reason,
			})
		}

		pending := model.JobStatusPending
		outcome = "reset"
		return r.jobs.Update(ctx, tx, jobID, repository.JobUpdate{
			Status:   &pending,
			Attempts: &attempts,
		})
	})
	return outcome, attempts, err
}
