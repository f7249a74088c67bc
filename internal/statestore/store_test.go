package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Snapshot {
	return Snapshot{
		ID:               "amp-1",
		ConnectionStatus: Connected,
		PowerStatus:      "Online",
		Manufacturer:     "Acme",
		ChannelCount:     4,
		UpdatedAt:        time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Load(ctx, "amp-1")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := sample()
	require.NoError(t, s.Save(ctx, "amp-1", snap))

	// 保存后修改原值不影响存储
	snap.PowerStatus = "Standby"
	got, err := s.Load(ctx, "amp-1")
	require.NoError(t, err)
	assert.Equal(t, "Online", got.PowerStatus)
	assert.Equal(t, 4, got.ChannelCount)
}

// 需要真实 Redis 实例
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping test")
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

func TestRedisStore(t *testing.T) {
	client := setupTestRedis(t)
	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	_, err := s.Load(ctx, "amp-1")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := sample()
	require.NoError(t, s.Save(ctx, "amp-1", snap))
	got, err := s.Load(ctx, "amp-1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	ttl := client.TTL(ctx, keyStatePrefix+"amp-1").Val()
	assert.Greater(t, ttl, time.Duration(0))
}
