// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/repository"
)

// mockTxManager runs the callback without a real transaction.
type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Job
	createErr error // used by tests to simulate store failures
	updateErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) snapshot(j *model.Job) *model.Job {
	cp := *j
	cp.Items = make([]model.Item, len(j.Items))
	copy(cp.Items, j.Items)
	return &cp
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[job.ID] = m.snapshot(job)
	return nil
}

func (m *memJobRepo) FindByIDAndOwner(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok || j.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return m.snapshot(j), nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.snapshot(j), nil
}

func (m *memJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	return m.FindByID(ctx, tx, id)
}

func (m *memJobRepo) Update(ctx context.Context, tx repository.Tx, id string, upd repository.JobUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	applyUpdate(j, upd)
	return nil
}

func applyUpdate(j *model.Job, upd repository.JobUpdate) {
	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.Items != nil {
		j.Items = make([]model.Item, len(upd.Items))
		copy(j.Items, upd.Items)
	}
	if upd.Cursor != nil {
		j.Cursor = *upd.Cursor
	}
	if upd.ProcessedCount != nil {
		j.ProcessedCount = *upd.ProcessedCount
	}
	if upd.SuccessCount != nil {
		j.SuccessCount = *upd.SuccessCount
	}
	if upd.FailCount != nil {
		j.FailCount = *upd.FailCount
	}
	if upd.Attempts != nil {
		j.Attempts = *upd.Attempts
	}
	if upd.ErrorMessage != nil {
		j.ErrorMessage = *upd.ErrorMessage
	}
	if upd.CompletedAt != nil {
		t := *upd.CompletedAt
		j.CompletedAt = &t
	}
	j.UpdatedAt = time.Now()
}

func (m *memJobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, limit int) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.OwnerID == ownerID {
			out = append(out, m.snapshot(j))
		}
	}
	// newest first
	for i := 0; i < len(out); i++ {
		for k := i + 1; k < len(out); k++ {
			if out[k].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[k] = out[k], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListStale(ctx context.Context, tx repository.Tx, status model.JobStatus, olderThan time.Time) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Status == status && j.UpdatedAt.Before(olderThan) {
			out = append(out, m.snapshot(j))
		}
	}
	return out, nil
}

func (m *memJobRepo) ClaimPending(ctx context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.Status != model.JobStatusPending {
		return nil, domain.ErrJobClaimed
	}
	j.Status = model.JobStatusProcessing
	j.UpdatedAt = time.Now()
	return m.snapshot(j), nil
}

// backdate makes a stored job look idle since the given time.
func (m *memJobRepo) backdate(id string, to time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.store[id]; ok {
		j.UpdatedAt = to
	}
}

func jobUpdateCursor(cursor, processed int) repository.JobUpdate {
	return repository.JobUpdate{Cursor: &cursor, ProcessedCount: &processed}
}

func jobUpdateAttempts(attempts int) repository.JobUpdate {
	return repository.JobUpdate{Attempts: &attempts}
}

// fakeQuota returns a fixed remaining allowance.
type fakeQuota struct {
	remaining int
	err       error
}

func (f *fakeQuota) Remaining(ctx context.Context, ownerID string, kind model.JobKind) (int, error) {
	return f.remaining, f.err
}

// recordingDispatcher captures dispatched job ids.
type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}
