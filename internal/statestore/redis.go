package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// amp:state:{id} -> Snapshot JSON
const keyStatePrefix = "amp:state:"

// RedisStore Redis 存储，供多实例/外部看板读取
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore ttl<=0 时默认 10 分钟
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, id string, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, keyStatePrefix+id, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save state %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (Snapshot, error) {
	b, err := s.client.Get(ctx, keyStatePrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load state %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return snap, nil
}
