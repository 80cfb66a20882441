// Package redis provides a Redis-backed checkpoint store for deployments
// where several API replicas share run history.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/smallnest/deepresearch/store"
)

const defaultPrefix = "deepresearch"

// Store persists checkpoints in Redis. Each checkpoint lives under its own
// key and a per-run sorted set (scored by Seq) indexes them in order.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL sets an expiry on checkpoint keys. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New creates a checkpoint store on an existing Redis client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromAddr connects to Redis at addr and verifies the connection.
func NewFromAddr(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, opts...), nil
}

func (s *Store) checkpointKey(id string) string {
	return fmt.Sprintf("%s:checkpoint:%s", s.prefix, id)
}

func (s *Store) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s:checkpoints", s.prefix, runID)
}

// Save stores one checkpoint and indexes it in the run's sorted set.
func (s *Store) Save(ctx context.Context, cp *store.RunCheckpoint) error {
	saved := *cp
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.checkpointKey(saved.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.runKey(saved.RunID), redis.Z{Score: float64(saved.Seq), Member: saved.ID})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.runKey(saved.RunID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Latest returns the run's checkpoint with the highest Seq.
func (s *Store) Latest(ctx context.Context, runID string) (*store.RunCheckpoint, error) {
	ids, err := s.client.ZRevRange(ctx, s.runKey(runID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query run index: %w", err)
	}
	if len(ids) == 0 {
		return nil, store.ErrNotFound
	}
	return s.load(ctx, ids[0])
}

// List returns the run's checkpoints ordered by Seq ascending.
func (s *Store) List(ctx context.Context, runID string) ([]*store.RunCheckpoint, error) {
	ids, err := s.client.ZRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query run index: %w", err)
	}

	cps := make([]*store.RunCheckpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.load(ctx, id)
		if err != nil {
			// Index entries can outlive expired checkpoint keys.
			if err == store.ErrNotFound {
				continue
			}
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, nil
}

// Clear removes the run's checkpoints and its index.
func (s *Store) Clear(ctx context.Context, runID string) error {
	ids, err := s.client.ZRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to query run index: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.checkpointKey(id))
	}
	keys = append(keys, s.runKey(runID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) load(ctx context.Context, id string) (*store.RunCheckpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(id)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var cp store.RunCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}
