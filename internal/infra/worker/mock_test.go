// File: internal/infra/worker/mock_test.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/adapter"
	"email-lookup-service/internal/domain/ports/repository"
)

// memJobRepo mirrors the postgres repo semantics in memory for unit tests.
type memJobRepo struct {
	mu        sync.Mutex
	store     map[string]*model.Job
	updateErr error // simulate store faults
	// failAfterUpdates makes Update start failing after N successful calls
	failAfterUpdates int
	updates          int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job), failAfterUpdates: -1}
}

func (m *memJobRepo) put(j *model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[j.ID] = m.snapshot(j)
}

func (m *memJobRepo) snapshot(j *model.Job) *model.Job {
	cp := *j
	cp.Items = make([]model.Item, len(j.Items))
	copy(cp.Items, j.Items)
	return &cp
}

func (m *memJobRepo) get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.store[id]; ok {
		return m.snapshot(j)
	}
	return nil
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.put(job)
	return nil
}

func (m *memJobRepo) FindByIDAndOwner(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return m.snapshot(j), nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.failAfterUpdates >= 0 && m.updates >= m.failAfterUpdates {
		return errors.New("store write failed")
	}
	m.updates++

	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
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
	return nil
}

func (m *memJobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, limit int) ([]*model.Job, error) {
	return nil, nil
}

func (m *memJobRepo) ListStale(ctx context.Context, tx repository.Tx, status model.JobStatus, olderThan time.Time) ([]*model.Job, error) {
	return nil, nil
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

// scriptedLookup replays canned outcomes keyed by item email or last name.
type scriptedLookup struct {
	mu      sync.Mutex
	find    map[string]*adapter.FindResult
	verify  map[string]*adapter.VerifyResult
	callErr error // returned as a Go error, exercising the isolation path
	calls   []string
	// onCall runs before each lookup with the 1-based call number
	onCall func(n int)
}

func newScriptedLookup() *scriptedLookup {
	return &scriptedLookup{
		find:   map[string]*adapter.FindResult{},
		verify: map[string]*adapter.VerifyResult{},
	}
}

func (s *scriptedLookup) Find(ctx context.Context, req adapter.FindRequest) (*adapter.FindResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.LastName)
	n := len(s.calls)
	hook := s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if s.callErr != nil {
		return nil, s.callErr
	}
	if res, ok := s.find[req.LastName]; ok {
		return res, nil
	}
	return &adapter.FindResult{Status: adapter.LookupStatusNotFound}, nil
}

func (s *scriptedLookup) Verify(ctx context.Context, email string) (*adapter.VerifyResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, email)
	n := len(s.calls)
	hook := s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if s.callErr != nil {
		return nil, s.callErr
	}
	if res, ok := s.verify[email]; ok {
		return res, nil
	}
	return &adapter.VerifyResult{Status: adapter.LookupStatusUnknown}, nil
}

func (s *scriptedLookup) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// memLocker is a process-local Locker.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]string
	// downErr simulates an unreachable lock backend
	downErr error
}

func newMemLocker() *memLocker {
	return &memLocker{locks: map[string]string{}}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.downErr != nil {
		return "", l.downErr
	}
	if _, held := l.locks[key]; held {
		return "", domain.ErrJobClaimed
	}
	l.locks[key] = key
	return key, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}
