package db

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned when no run has the requested ID
var ErrRunNotFound = errors.New("run not found")

// RunWriter stores a completed run with its awards and backfill counts
type RunWriter interface {
	InsertRun(ctx context.Context, run *Run, awards []AwardRecord, backfill []BackfillRecord) error
}

// RunReader reads run history
type RunReader interface {
	GetRuns(ctx context.Context) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetAwards(ctx context.Context, runID string) ([]AwardRecord, error)
	GetBackfill(ctx context.Context, runID string) ([]BackfillRecord, error)
}

// RunStore defines all run history operations.
// Both postgres.DB and MemoryStore implement this interface.
type RunStore interface {
	RunWriter
	RunReader
}
