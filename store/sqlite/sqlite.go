// Package sqlite provides a file-backed checkpoint store for runs that
// must survive a process restart without external infrastructure.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/store"
)

const defaultTable = "run_checkpoints"

// Store persists checkpoints in a SQLite database.
type Store struct {
	db    *sql.DB
	table string
}

// Option configures the Store.
type Option func(*Store)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// New opens (or creates) the database at path and ensures the checkpoint
// table exists.
func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := &Store{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		seq INTEGER NOT NULL,
		state TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%s_run_seq ON %s (run_id, seq);`, s.table, s.table, s.table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return s, nil
}

// Save stores one checkpoint, overwriting any row with the same ID.
func (s *Store) Save(ctx context.Context, cp *store.RunCheckpoint) error {
	id := cp.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := cp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, run_id, stage, seq, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			stage = excluded.stage,
			seq = excluded.seq,
			state = excluded.state,
			created_at = excluded.created_at`, s.table)
	if _, err := s.db.ExecContext(ctx, query, id, cp.RunID, cp.Stage, cp.Seq, string(stateJSON), createdAt); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Latest returns the run's checkpoint with the highest Seq.
func (s *Store) Latest(ctx context.Context, runID string) (*store.RunCheckpoint, error) {
	query := fmt.Sprintf(`SELECT id, run_id, stage, seq, state, created_at
		FROM %s WHERE run_id = ? ORDER BY seq DESC LIMIT 1`, s.table)
	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return cp, err
}

// List returns the run's checkpoints ordered by Seq ascending.
func (s *Store) List(ctx context.Context, runID string) ([]*store.RunCheckpoint, error) {
	query := fmt.Sprintf(`SELECT id, run_id, stage, seq, state, created_at
		FROM %s WHERE run_id = ? ORDER BY seq ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []*store.RunCheckpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// Clear removes all checkpoints for the run.
func (s *Store) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = ?", s.table)
	if _, err := s.db.ExecContext(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*store.RunCheckpoint, error) {
	var cp store.RunCheckpoint
	var stateJSON string
	if err := row.Scan(&cp.ID, &cp.RunID, &cp.Stage, &cp.Seq, &stateJSON, &cp.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}

	var st research.State
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	cp.State = st
	return &cp, nil
}
