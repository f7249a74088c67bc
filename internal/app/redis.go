package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/statestore"
	redisstorage "github.com/taoyao-code/amp-gateway/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端，未启用时返回 nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))

	return client, nil
}

// NewStateStore Redis 可用时发布到 Redis，否则保存在进程内
func NewStateStore(client *redisstorage.Client, cfg cfgpkg.RedisConfig) statestore.Store {
	if client == nil {
		return statestore.NewMemoryStore()
	}
	return statestore.NewRedisStore(client.Client, cfg.StateTTL)
}
