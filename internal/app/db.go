package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/audit"
	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/migrate"
	pgstorage "github.com/taoyao-code/amp-gateway/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并按需执行审计表迁移
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		n, err := (migrate.Runner{FS: audit.Migrations()}).Up(ctx, dbpool)
		if err != nil {
			log.Error("db migrate error", zap.Error(err))
			return dbpool, err
		}
		log.Info("db migrations applied", zap.Int("count", n))
	}
	return dbpool, nil
}

// NewRecorder 数据库启用时使用 PostgreSQL 审计，否则退回内存
func NewRecorder(dbpool *pgxpool.Pool) audit.Recorder {
	if dbpool == nil {
		return audit.NewMemoryRecorder(0)
	}
	return &audit.Repository{Pool: dbpool}
}
