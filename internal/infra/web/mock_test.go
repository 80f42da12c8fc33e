package web

import (
	"context"
	"sync"
	"time"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/repository"
)

// --- Mock Repositories (Ports) ---

type mockJobRepo struct {
	repository.JobRepository // Embed interface for forward compatibility
	mu                       sync.Mutex
	jobs                     map[string]*model.Job
	CreateError              error // To simulate errors
	ListError                error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: map[string]*model.Job{}}
}

func (m *mockJobRepo) put(j *model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
}

func (m *mockJobRepo) get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (m *mockJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.put(job)
	return nil
}

func (m *mockJobRepo) FindByIDAndOwner(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobRepo) Update(ctx context.Context, tx repository.Tx, id string, upd repository.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.ErrorMessage != nil {
		j.ErrorMessage = *upd.ErrorMessage
	}
	if upd.CompletedAt != nil {
		j.CompletedAt = upd.CompletedAt
	}
	j.UpdatedAt = time.Now()
	return nil
}

func (m *mockJobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, limit int) ([]*model.Job, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Job, 0)
	for _, j := range m.jobs {
		if j.OwnerID == ownerID && len(out) < limit {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- Mock Services (Adapters) ---

type mockQuota struct {
	remaining int
	err       error
}

func (m *mockQuota) Remaining(ctx context.Context, ownerID string, kind model.JobKind) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.remaining, nil
}

type nopDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *nopDispatcher) Dispatch(ctx context.Context, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
}

func (d *nopDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}
