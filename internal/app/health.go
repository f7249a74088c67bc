package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/amp-gateway/internal/health"
	redisstorage "github.com/taoyao-code/amp-gateway/internal/storage/redis"
)

// NewHealthAggregator 功放链路为必选检查，Redis 与数据库按启用情况添加
func NewHealthAggregator(link health.AmplifierLink, redisClient *redisstorage.Client, dbpool *pgxpool.Pool) *health.Aggregator {
	agg := health.NewAggregator(health.NewAmplifierChecker(link, 0))
	if redisClient != nil {
		agg.AddChecker(health.NewRedisChecker(redisClient))
	}
	if dbpool != nil {
		agg.AddChecker(health.NewDatabaseChecker(dbpool))
	}
	return agg
}
