package adapter

import "context"

// LookupStatus is the provider's verdict for a single lookup attempt.
type LookupStatus string

const (
	LookupStatusValid    LookupStatus = "valid"
	LookupStatusInvalid  LookupStatus = "invalid"
	LookupStatusRisky    LookupStatus = "risky"
	LookupStatusUnknown  LookupStatus = "unknown"
	LookupStatusNotFound LookupStatus = "not_found"
	LookupStatusError    LookupStatus = "error"
)

// FindRequest asks the provider for the most probable email of a person at a domain.
type FindRequest struct {
	FirstName string
	LastName  string
	Domain    string
	Role      string
}

type FindResult struct {
	Email      string
	Confidence int
	Status     LookupStatus
	// ErrorReason distinguishes timeout vs connection failure vs rate limit
	// when Status is error.
	ErrorReason string
	Flags       []string
}

type VerifyResult struct {
	Status      LookupStatus
	Confidence  int
	Deliverable bool
	ErrorReason string
	Flags       []string
}

// LookupAdapter is the slow, fallible per-item operation the batch worker
// depends on. Implementations own their timeout and retry policy: they retry
// transient failures with exponential backoff internally and surface
// Status=error only once that budget is exhausted. The returned error is
// reserved for faults in the adapter itself (the worker maps it to an
// item-level error outcome, never a job abort).
type LookupAdapter interface {
	Find(ctx context.Context, req FindRequest) (*FindResult, error)
	Verify(ctx context.Context, email string) (*VerifyResult, error)
}
