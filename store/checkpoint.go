// Package store defines run checkpoints: snapshots of the research state
// saved after every stage so a run can be inspected or resumed. Backends
// live in the subpackages memory, sqlite, redis, and postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/smallnest/deepresearch/research"
)

// ErrNotFound is returned when a run has no checkpoints.
var ErrNotFound = errors.New("checkpoint not found")

// RunCheckpoint is one saved snapshot of a research run. Seq increases by
// one per saved stage, so the checkpoint with the highest Seq is the most
// recent state of the run.
type RunCheckpoint struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage"`
	Seq       int            `json:"seq"`
	State     research.State `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

// CheckpointStore persists run checkpoints. Implementations must be safe
// for concurrent use.
type CheckpointStore interface {
	// Save stores one checkpoint. Saving an existing ID overwrites it.
	Save(ctx context.Context, cp *RunCheckpoint) error
	// Latest returns the checkpoint with the highest Seq for the run, or
	// ErrNotFound when the run has none.
	Latest(ctx context.Context, runID string) (*RunCheckpoint, error)
	// List returns all checkpoints for the run ordered by Seq ascending.
	List(ctx context.Context, runID string) ([]*RunCheckpoint, error)
	// Clear removes all checkpoints for the run.
	Clear(ctx context.Context, runID string) error
	// Close releases backend resources.
	Close() error
}
