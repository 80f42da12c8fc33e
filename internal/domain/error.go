package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrEmptyBatch          = errors.New("batch contains no items")
	ErrInsufficientCredits = errors.New("insufficient lookup credits")
	ErrUnknownJobKind      = errors.New("unknown job kind")
	ErrJobTerminal         = errors.New("job already in a terminal status")
	ErrJobClaimed          = errors.New("job claimed by another worker")
	ErrQueueSaturated      = errors.New("dispatch queue saturated")
	ErrInvalidExecContext  = errors.New("invalid query execution context")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
)
