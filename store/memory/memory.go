// Package memory provides an in-process checkpoint store, the default for
// single-run CLI usage and for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/smallnest/deepresearch/store"
)

// Store keeps checkpoints in memory, grouped by run.
type Store struct {
	mu   sync.RWMutex
	runs map[string][]*store.RunCheckpoint
}

// New creates an empty in-memory checkpoint store.
func New() *Store {
	return &Store{runs: make(map[string][]*store.RunCheckpoint)}
}

// Save stores a copy of the checkpoint, replacing any existing entry with
// the same ID.
func (s *Store) Save(_ context.Context, cp *store.RunCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *cp
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}

	cps := s.runs[saved.RunID]
	for i, existing := range cps {
		if existing.ID == saved.ID {
			cps[i] = &saved
			return nil
		}
	}
	s.runs[saved.RunID] = append(cps, &saved)
	return nil
}

// Latest returns the checkpoint with the highest Seq for the run.
func (s *Store) Latest(_ context.Context, runID string) (*store.RunCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cps := s.runs[runID]
	if len(cps) == 0 {
		return nil, store.ErrNotFound
	}

	latest := cps[0]
	for _, cp := range cps[1:] {
		if cp.Seq > latest.Seq {
			latest = cp
		}
	}
	copied := *latest
	return &copied, nil
}

// List returns the run's checkpoints ordered by Seq ascending.
func (s *Store) List(_ context.Context, runID string) ([]*store.RunCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cps := s.runs[runID]
	out := make([]*store.RunCheckpoint, len(cps))
	for i, cp := range cps {
		copied := *cp
		out[i] = &copied
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Clear removes all checkpoints for the run.
func (s *Store) Clear(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// Close drops all stored checkpoints.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string][]*store.RunCheckpoint)
	return nil
}
