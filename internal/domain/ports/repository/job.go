package repository

import (
	"context"
	"time"

	"email-lookup-service/internal/domain/model"
)

// JobUpdate is a field-level merge: only non-nil fields are written, so a
// writer that only advances the cursor does not clobber aggregates changed
// by another update of the same job.
type JobUpdate struct {
	Status         *model.JobStatus
	Items          []model.Item // full item slice replacement when present
	Cursor         *int
	ProcessedCount *int
	SuccessCount   *int
	FailCount      *int
	Attempts       *int
	ErrorMessage   *string
	CompletedAt    *time.Time
}

type JobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.Job) error
	// FindByIDAndOwner returns domain.ErrNotFound when either the id is
	// unknown or the job belongs to a different owner.
	FindByIDAndOwner(ctx context.Context, tx Tx, id, ownerID string) (*model.Job, error)
	// FindByID is reserved for engine-internal readers (worker, sweep).
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// FindByIDForUpdate locks the row for the duration of tx, so two
	// concurrent sweeps serialize on the same job.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Job, error)
	Update(ctx context.Context, tx Tx, id string, upd JobUpdate) error
	ListByOwner(ctx context.Context, tx Tx, ownerID string, limit int) ([]*model.Job, error)
	ListStale(ctx context.Context, tx Tx, status model.JobStatus, olderThan time.Time) ([]*model.Job, error)
	// ClaimPending atomically moves a job from 'pending' to 'processing'.
	// Returns domain.ErrJobClaimed when the job is not pending, so duplicate
	// dispatches cannot double-run the same job.
	ClaimPending(ctx context.Context, id string) (*model.Job, error)
}
