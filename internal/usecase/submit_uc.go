// File: internal/usecase/submit_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/adapter"
	"email-lookup-service/internal/domain/ports/repository"
	"email-lookup-service/internal/infra/logging"
	"email-lookup-service/internal/infra/metrics"
)

// JobDispatcher triggers a worker run for a freshly created or reset job.
// Implementations must never block the caller on the actual processing.
type JobDispatcher interface {
	Dispatch(ctx context.Context, jobID string)
}

// Compile-time check
var _ SubmitUseCase = (*submitUC)(nil)

type SubmitUseCase interface {
	// Submit validates the batch, checks the owner's quota, persists the
	// pending job and triggers dispatch. It returns as soon as the job
	// record exists; processing happens in the background.
	Submit(ctx context.Context, ownerID string, kind model.JobKind, inputs []model.ItemInput, sourceLabel string) (*model.Job, error)
}

type submitUC struct {
	jobs       repository.JobRepository
	quota      adapter.QuotaService
	dispatcher JobDispatcher
	log        *zerolog.Logger
}

func NewSubmitUseCase(jobs repository.JobRepository, quota adapter.QuotaService, dispatcher JobDispatcher, logger *zerolog.Logger) *submitUC {
	slog := logger.With().Str("component", "SubmitUC").Logger()
	return &submitUC{jobs: jobs, quota: quota, dispatcher: dispatcher, log: &slog}
}

func (s *submitUC) Submit(ctx context.Context, ownerID string, kind model.JobKind, inputs []model.ItemInput, sourceLabel string) (*model.Job, error) {
	defer logging.TraceDuration(s.log, "SubmitUC.Submit")()

	job, err := model.NewJob(ownerID, kind, inputs, sourceLabel)
	if err != nil {
		return nil, err
	}

	remaining, err := s.quota.Remaining(ctx, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}
	if remaining < len(inputs) {
		return nil, domain.ErrInsufficientCredits
	}

	if err := s.jobs.Create(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.IncJobSubmitted(string(kind))
	s.log.Info().Str("job_id", job.ID).Str("kind", string(kind)).Int("items", len(inputs)).Msg("batch accepted")

	s.dispatcher.Dispatch(ctx, job.ID)
	return job, nil
}
