package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore keeps run history in process memory. It backs serve when no database is
// configured, so history is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]Run
	awards   map[string][]AwardRecord
	backfill map[string][]BackfillRecord
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]Run),
		awards:   make(map[string][]AwardRecord),
		backfill: make(map[string][]BackfillRecord),
	}
}

func (m *MemoryStore) InsertRun(ctx context.Context, run *Run, awards []AwardRecord, backfill []BackfillRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}

	m.runs[run.ID] = *run
	m.awards[run.ID] = slices.Clone(awards)
	m.backfill[run.ID] = slices.Clone(backfill)
	return nil
}

// GetRuns returns all runs, newest first
func (m *MemoryStore) GetRuns(ctx context.Context) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (m *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &r, nil
}

func (m *MemoryStore) GetAwards(ctx context.Context, runID string) ([]AwardRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return slices.Clone(m.awards[runID]), nil
}

func (m *MemoryStore) GetBackfill(ctx context.Context, runID string) ([]BackfillRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return slices.Clone(m.backfill[runID]), nil
}
