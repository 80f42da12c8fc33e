// File: internal/usecase/job_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/repository"
)

// StopReason is recorded on jobs halted by their owner.
const StopReason = "manually stopped"

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type JobUseCase interface {
	Get(ctx context.Context, ownerID, jobID string) (*model.Job, error)
	List(ctx context.Context, ownerID string, limit int) ([]*model.Job, error)
	// Stop marks a running job failed with StopReason. Stopping a job that
	// already reached a terminal status is a no-op that reports the current
	// state. The worker is not preempted; it notices the status change at
	// its next iteration and exits.
	Stop(ctx context.Context, ownerID, jobID string) (*model.Job, error)
}

type jobUC struct {
	jobs repository.JobRepository
	log  *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, logger *zerolog.Logger) *jobUC {
	jlog := logger.With().Str("component", "JobUC").Logger()
	return &jobUC{jobs: jobs, log: &jlog}
}

func (u *jobUC) Get(ctx context.Context, ownerID, jobID string) (*model.Job, error) {
	return u.jobs.FindByIDAndOwner(ctx, nil, jobID, ownerID)
}

func (u *jobUC) List(ctx context.Context, ownerID string, limit int) ([]*model.Job, error) {
	return u.jobs.ListByOwner(ctx, nil, ownerID, limit)
}

func (u *jobUC) Stop(ctx context.Context, ownerID, jobID string) (*model.Job, error) {
	job, err := u.jobs.FindByIDAndOwner(ctx, nil, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	failed := model.JobStatusFailed
	reason := StopReason
	if err := u.jobs.Update(ctx, nil, job.ID, repository.JobUpdate{
		Status:       &failed,
		ErrorMessage: &reason,
	}); err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", job.ID).Msg("job stopped by owner")

	job.Status = failed
	job.ErrorMessage = reason
	return job, nil
}
