//go:build !integration

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"email-lookup-service/internal/domain/model"
)

func TestRecoveryUseCase(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	staleness := 10 * time.Minute

	t.Run("should reset a stale processing job and re-dispatch it", func(t *testing.T) {
		repo := newMemJobRepo()
		disp := &recordingDispatcher{}
		job := seedJob(t, repo, "owner-1", model.JobStatusProcessing)
		repo.backdate(job.ID, time.Now().Add(-15*time.Minute))

		uc := NewRecoveryUseCase(repo, &mockTxManager{}, disp, staleness, 3, &logger)
		n, err := uc.RecoverStuckJobs(ctx)
		if err != nil {
			t.Fatalf("RecoverStuckJobs: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 handled job, got %d", n)
		}

		got, _ := repo.FindByID(ctx, nil, job.ID)
		if got.Status != model.JobStatusPending {
			t.Errorf("expected pending after reset, got %s", got.Status)
		}
		if got.Attempts != 1 {
			t.Errorf("expected attempts 1, got %d", got.Attempts)
		}
		if ids := disp.dispatched(); len(ids) != 1 || ids[0] != job.ID {
			t.Errorf("expected re-dispatch of %s, got %v", job.ID, ids)
		}
	})

	t.Run("should preserve the cursor across a reset", func(t *testing.T) {
		repo := newMemJobRepo()
		job := seedJob(t, repo, "owner-1", model.JobStatusProcessing)
		cursor := 2
		processed := 2
		_ = repo.Update(ctx, nil, job.ID, jobUpdateCursor(cursor, processed))
		repo.backdate(job.ID, time.Now().Add(-15*time.Minute))

		uc := NewRecoveryUseCase(repo, &mockTxManager{}, &recordingDispatcher{}, staleness, 3, &logger)
		if _, err := uc.RecoverStuckJobs(ctx); err != nil {
			t.Fatalf("RecoverStuckJobs: %v", err)
		}

		got, _ := repo.FindByID(ctx, nil, job.ID)
		if got.Cursor != 2 {
			t.Errorf("reset must preserve the cursor, got %d", got.Cursor)
		}
	})

	t.Run("should stall a job over the retry budget", func(t *testing.T) {
		repo := newMemJobRepo()
		disp := &recordingDispatcher{}
		job := seedJob(t, repo, "owner-1", model.JobStatusProcessing)
		attempts := 3
		_ = repo.Update(ctx, nil, job.ID, jobUpdateAttempts(attempts))
		repo.backdate(job.ID, time.Now().Add(-15*time.Minute))

		uc := NewRecoveryUseCase(repo, &mockTxManager{}, disp, staleness, 3, &logger)
		n, err := uc.RecoverStuckJobs(ctx)
		if err != nil {
			t.Fatalf("RecoverStuckJobs: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 handled job, got %d", n)
		}

		got, _ := repo.FindByID(ctx, nil, job.ID)
		if got.Status != model.JobStatusFailed || got.ErrorMessage != StalledReason {
			t.Errorf("expected failed/stalled, got %s %q", got.Status, got.ErrorMessage)
		}
		if len(disp.dispatched()) != 0 {
			t.Error("a stalled job must not be re-dispatched")
		}
	})

	t.Run("should leave fresh processing jobs alone", func(t *testing.T) {
		repo := newMemJobRepo()
		disp := &recordingDispatcher{}
		seedJob(t, repo, "owner-1", model.JobStatusProcessing)

		uc := NewRecoveryUseCase(repo, &mockTxManager{}, disp, staleness, 3, &logger)
		n, err := uc.RecoverStuckJobs(ctx)
		if err != nil {
			t.Fatalf("RecoverStuckJobs: %v", err)
		}
		if n != 0 || len(disp.dispatched()) != 0 {
			t.Errorf("fresh jobs must be untouched, handled=%d dispatched=%v", n, disp.dispatched())
		}
	})
}
