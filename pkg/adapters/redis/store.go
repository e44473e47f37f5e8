// Package redis provides a Redis-backed Checkpointer for multi-process
// deployments where runs must survive a single host.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.Checkpointer using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for checkpoints.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for checkpoints.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "espalier:checkpoint:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(executionID string) string {
	return s.prefix + executionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the state to Redis.
func (s *Store) Save(ctx context.Context, state *domain.State) error {
	if state.ExecutionID == "" {
		return fmt.Errorf("execution id cannot be empty")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.Pipeline()

	// 1. Save JSON with TTL (0 = no expiration).
	pipe.Set(ctx, s.key(state.ExecutionID), data, s.ttl)

	// 2. Add to index (ZSET). Score = expiry; effectively infinite when no TTL.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01, far enough
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: state.ExecutionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, executionID string) (*domain.State, error) {
	val, err := s.client.Get(ctx, s.key(executionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// Delete removes the checkpoint and its index entry.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(executionID))
	pipe.ZRem(ctx, s.indexKey(), executionID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns known execution IDs, lazily pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE index -inf (now). With no TTL this removes nothing.
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired checkpoints: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
