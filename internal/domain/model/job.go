package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"email-lookup-service/internal/domain"
)

type JobKind string

const (
	JobKindFind   JobKind = "find"
	JobKindVerify JobKind = "verify"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further automatic transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	// find outcomes
	ItemStatusFound    ItemStatus = "found"
	ItemStatusNotFound ItemStatus = "not_found"
	// verify outcomes come from the verifier's own vocabulary
	ItemStatusValid   ItemStatus = "valid"
	ItemStatusInvalid ItemStatus = "invalid"
	ItemStatusRisky   ItemStatus = "risky"
	ItemStatusUnknown ItemStatus = "unknown"
	// error marks an item whose lookup could not be attempted/finished
	ItemStatusError ItemStatus = "error"
)

// ItemInput is the kind-specific payload of one lookup.
// Find jobs use FirstName/LastName/Domain (Role optional); verify jobs use Email.
// Passthrough preserves arbitrary caller fields verbatim for the result export.
type ItemInput struct {
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Domain      string            `json:"domain,omitempty"`
	Role        string            `json:"role,omitempty"`
	Email       string            `json:"email,omitempty"`
	Passthrough map[string]string `json:"passthrough,omitempty"`
}

// ItemResult is what the lookup produced for a non-error item.
type ItemResult struct {
	Email       string   `json:"email,omitempty"`
	Confidence  int      `json:"confidence,omitempty"`
	Deliverable bool     `json:"deliverable,omitempty"`
	Flags       []string `json:"flags,omitempty"`
}

type Item struct {
	Index       int         `json:"index"`
	Input       ItemInput   `json:"input"`
	Status      ItemStatus  `json:"status"`
	Result      *ItemResult `json:"result,omitempty"`
	ErrorReason string      `json:"error_reason,omitempty"`
}

// Job is one user-submitted batch of lookups.
// Items are processed in index order starting at Cursor; Cursor is the
// resumption point and never moves backwards during normal operation.
type Job struct {
	ID             string
	OwnerID        string
	Kind           JobKind
	Status         JobStatus
	Items          []Item
	Cursor         int
	ProcessedCount int
	SuccessCount   int
	FailCount      int
	Attempts       int
	ErrorMessage   string
	SourceLabel    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// NewJob constructs a pending job from validated inputs.
func NewJob(ownerID string, kind JobKind, inputs []ItemInput, sourceLabel string) (*Job, error) {
	if ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if kind != JobKindFind && kind != JobKindVerify {
		return nil, domain.ErrUnknownJobKind
	}
	if len(inputs) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	items := make([]Item, len(inputs))
	for i, in := range inputs {
		if err := validateInput(kind, in); err != nil {
			return nil, err
		}
		items[i] = Item{Index: i, Input: in, Status: ItemStatusPending}
	}

	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        kind,
		Status:      JobStatusPending,
		Items:       items,
		SourceLabel: sourceLabel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func validateInput(kind JobKind, in ItemInput) error {
	switch kind {
	case JobKindFind:
		if strings.TrimSpace(in.Domain) == "" {
			return domain.ErrInvalidArgument
		}
		if strings.TrimSpace(in.FirstName) == "" && strings.TrimSpace(in.LastName) == "" {
			return domain.ErrInvalidArgument
		}
	case JobKindVerify:
		email := strings.TrimSpace(in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domain.ErrInvalidArgument
		}
	}
	return nil
}

// RecordOutcome applies one item outcome: the item's terminal state, the
// aggregates and the cursor move together so a crash between items leaves
// the job resumable at a consistent index.
// Invariant: ProcessedCount = SuccessCount + FailCount <= len(Items).
func (j *Job) RecordOutcome(index int, status ItemStatus, result *ItemResult, reason string) error {
	if index < 0 || index >= len(j.Items) {
		return domain.ErrInvalidArgument
	}
	it := &j.Items[index]
	it.Status = status
	it.Result = result
	it.ErrorReason = reason

	j.ProcessedCount++
	if status == ItemStatusError {
		j.FailCount++
	} else {
		// any terminal outcome other than error is a successful attempt,
		// even when the lookup found nothing
		j.SuccessCount++
	}
	if index+1 > j.Cursor {
		j.Cursor = index + 1
	}
	j.UpdatedAt = time.Now()
	return nil
}

// Remaining reports how many items have not yet reached a terminal state.
func (j *Job) Remaining() int {
	return len(j.Items) - j.ProcessedCount
}
