package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshots expire after a week; a rollback older than that would be
// restoring state the cluster has long since drifted away from.
const snapshotTTL = 7 * 24 * time.Hour

// RedisStore is the fast snapshot tier.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisStoreFromClient wraps an existing client, used in tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, state *WorkloadState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	key := Key(state.Namespace, state.WorkloadKind, state.WorkloadName)
	if err := s.client.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("writing snapshot to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, namespace, kind, name string) (*WorkloadState, error) {
	data, err := s.client.Get(ctx, Key(namespace, kind, name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot from redis: %w", err)
	}
	state := &WorkloadState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace, kind, name string) error {
	return s.client.Del(ctx, Key(namespace, kind, name)).Err()
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
