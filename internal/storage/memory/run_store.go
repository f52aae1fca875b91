package memory

import (
	"context"
	"sync"

	"revenue-feature-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*storage.RunRecord
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*storage.RunRecord),
	}
}

// Save inserts or overwrites the record with the same RunID.
func (s *RunStore) Save(_ context.Context, run *storage.RunRecord) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *run
	s.runs[run.RunID] = &c
	return nil
}

// Get retrieves a run by id.
func (s *RunStore) Get(_ context.Context, runID string) (*storage.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *run
	return &c, nil
}

// Latest returns the most recently started run.
func (s *RunStore) Latest(_ context.Context) (*storage.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *storage.RunRecord
	for _, run := range s.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	c := *latest
	return &c, nil
}

var _ storage.RunStore = (*RunStore)(nil)
