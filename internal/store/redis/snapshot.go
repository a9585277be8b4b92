package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// SnapshotStore keeps the latest state checkpoint under a single key.
type SnapshotStore struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// NewSnapshotStore creates a store on key. SQLite keeps the durable copy,
// so the Redis copy expires after ttl (24h when zero).
func NewSnapshotStore(client *goredis.Client, key string, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotStore{client: client, key: key, ttl: ttl}
}

// SaveSnapshotJSON stores data under the snapshot key.
func (s *SnapshotStore) SaveSnapshotJSON(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot %s: %w", s.key, err)
	}
	return nil
}

// ReadLatestSnapshotJSON returns the stored snapshot, or nil when absent.
func (s *SnapshotStore) ReadLatestSnapshotJSON(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get snapshot %s: %w", s.key, err)
	}
	return data, nil
}
