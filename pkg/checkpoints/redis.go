package checkpoints

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	backend "github.com/redis/go-redis/v9"

	"github.com/avi3tal/flowgraph/pkg/types"
)

const defaultRedisPrefix = "flowgraph:checkpoint:"

// RedisStore persists checkpoints as JSON values in Redis, one key per
// execution plus a set index for listing.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets an expiration on stored checkpoints. Zero means no
// expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the given address and returns a store.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(executionID string) string {
	return s.prefix + executionID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Save writes the checkpoint and registers the execution in the index,
// in one pipeline.
func (s *RedisStore) Save(ctx context.Context, cp types.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(cp.ExecutionID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), cp.ExecutionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "save checkpoint to redis")
	}
	return nil
}

// Load retrieves and decodes an execution's checkpoint.
func (s *RedisStore) Load(ctx context.Context, executionID string) (*types.Checkpoint, error) {
	val, err := s.client.Get(ctx, s.key(executionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, errors.Wrap(ErrNotFound, executionID)
		}
		return nil, errors.Wrap(err, "get checkpoint from redis")
	}

	var cp types.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return nil, errors.Wrap(err, "unmarshal checkpoint")
	}
	return &cp, nil
}

// List returns the indexed execution IDs, pruning entries whose value
// has expired.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}

	live := ids[:0]
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, errors.Wrap(err, "check checkpoint key")
		}
		if exists == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Delete removes the checkpoint and its index entry.
func (s *RedisStore) Delete(ctx context.Context, executionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(executionID))
	pipe.SRem(ctx, s.indexKey(), executionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "delete checkpoint from redis")
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
