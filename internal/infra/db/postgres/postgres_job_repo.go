package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, owner_id, kind, status, items, cursor,
processed_count, success_count, fail_count, attempts,
error_message, source_label, created_at, updated_at, completed_at`

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	items, err := json.Marshal(job.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	const q = `
INSERT INTO lookup_jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.OwnerID, job.Kind, job.Status, items, job.Cursor,
		job.ProcessedCount, job.SuccessCount, job.FailCount, job.Attempts,
		job.ErrorMessage, job.SourceLabel, job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *jobRepo) FindByIDAndOwner(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM lookup_jobs WHERE id=$1 AND owner_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, id, ownerID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM lookup_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// FindByIDForUpdate takes a row lock so a concurrent transaction reading the
// same job blocks until this one commits. Only meaningful inside a tx.
func (r *jobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM lookup_jobs WHERE id=$1 FOR UPDATE;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// Update applies a field-level merge: only fields set in upd are written, so
// concurrent writers touching disjoint fields do not clobber each other.
func (r *jobRepo) Update(ctx context.Context, tx repository.Tx, id string, upd repository.JobUpdate) error {
	sets := make([]string, 0, 10)
	args := make([]interface{}, 0, 10)
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, col+"=$"+strconv.Itoa(len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Items != nil {
		b, err := json.Marshal(upd.Items)
		if err != nil {
			return fmt.Errorf("marshal items: %w", err)
		}
		add("items", b)
	}
	if upd.Cursor != nil {
		add("cursor", *upd.Cursor)
	}
	if upd.ProcessedCount != nil {
		add("processed_count", *upd.ProcessedCount)
	}
	if upd.SuccessCount != nil {
		add("success_count", *upd.SuccessCount)
	}
	if upd.FailCount != nil {
		add("fail_count", *upd.FailCount)
	}
	if upd.Attempts != nil {
		add("attempts", *upd.Attempts)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if upd.CompletedAt != nil {
		add("completed_at", *upd.CompletedAt)
	}
	add("updated_at", time.Now())

	args = append(args, id)
	q := "UPDATE lookup_jobs SET " + strings.Join(sets, ", ") +
		" WHERE id=$" + strconv.Itoa(len(args)) + ";"

	tag, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + jobColumns + `
  FROM lookup_jobs WHERE owner_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := pickRows(ctx, r.pool, tx, q, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *jobRepo) ListStale(ctx context.Context, tx repository.Tx, status model.JobStatus, olderThan time.Time) ([]*model.Job, error) {
	const q = `SELECT ` + jobColumns + `
  FROM lookup_jobs WHERE status=$1 AND updated_at < $2 ORDER BY updated_at;`
	rows, err := pickRows(ctx, r.pool, tx, q, status, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ClaimPending is the conditional claim step: the status moves to 'processing'
// only via a compare-and-swap from 'pending', so a queue redelivery racing a
// direct fallback invocation cannot both win.
func (r *jobRepo) ClaimPending(ctx context.Context, id string) (*model.Job, error) {
	const q = `
UPDATE lookup_jobs
   SET status='processing', updated_at=now()
 WHERE id=$1 AND status='pending'
RETURNING ` + jobColumns + `;`

	job, err := scanJob(r.pool.QueryRow(ctx, q, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Distinguish a missing job from one that is simply not pending.
	var status string
	if scanErr := r.pool.QueryRow(ctx, `SELECT status FROM lookup_jobs WHERE id=$1;`, id).Scan(&status); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, scanErr
	}
	return nil, domain.ErrJobClaimed
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j     model.Job
		kind  string
		state string
		items []byte
	)
	err := row.Scan(
		&j.ID, &j.OwnerID, &kind, &state, &items, &j.Cursor,
		&j.ProcessedCount, &j.SuccessCount, &j.FailCount, &j.Attempts,
		&j.ErrorMessage, &j.SourceLabel, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(state)
	if err := json.Unmarshal(items, &j.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*model.Job, error) {
	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
