// Package postgres provides a PostgreSQL-backed checkpoint store for
// shared deployments.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/store"
)

const defaultTable = "run_checkpoints"

// DBPool is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists checkpoints in a PostgreSQL table with a JSONB state
// column.
type Store struct {
	pool  DBPool
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

// New connects to PostgreSQL with the given connection string and ensures
// the checkpoint table exists.
func New(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := NewWithPool(pool, opts...)
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an existing pool without touching the schema. The
// caller is responsible for the table existing.
func NewWithPool(pool DBPool, opts ...Option) *Store {
	s := &Store{pool: pool, table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ensureTable(ctx context.Context) error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		seq INTEGER NOT NULL,
		state JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%s_run_seq ON %s (run_id, seq)`, s.table, s.table, s.table)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return nil
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
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			stage = EXCLUDED.stage,
			seq = EXCLUDED.seq,
			state = EXCLUDED.state,
			created_at = EXCLUDED.created_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, id, cp.RunID, cp.Stage, cp.Seq, stateJSON, createdAt); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Latest returns the run's checkpoint with the highest Seq.
func (s *Store) Latest(ctx context.Context, runID string) (*store.RunCheckpoint, error) {
	query := fmt.Sprintf(`SELECT id, run_id, stage, seq, state, created_at
		FROM %s WHERE run_id = $1 ORDER BY seq DESC LIMIT 1`, s.table)
	cp, err := scanCheckpoint(s.pool.QueryRow(ctx, query, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return cp, err
}

// List returns the run's checkpoints ordered by Seq ascending.
func (s *Store) List(ctx context.Context, runID string) ([]*store.RunCheckpoint, error) {
	query := fmt.Sprintf(`SELECT id, run_id, stage, seq, state, created_at
		FROM %s WHERE run_id = $1 ORDER BY seq ASC`, s.table)
	rows, err := s.pool.Query(ctx, query, runID)
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
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1", s.table)
	if _, err := s.pool.Exec(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*store.RunCheckpoint, error) {
	var cp store.RunCheckpoint
	var stateJSON []byte
	if err := row.Scan(&cp.ID, &cp.RunID, &cp.Stage, &cp.Seq, &stateJSON, &cp.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}

	var st research.State
	if err := json.Unmarshal(stateJSON, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	cp.State = st
	return &cp, nil
}
