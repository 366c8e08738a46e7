package stores

import (
	"context"
	"time"

	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/pkg/core/cache"
	"github.com/prometheus/client_golang/prometheus"
)

const cacheMetricsNamespace = "rewardnode_cache"

// InitCaches builds the result cache selected by cache.backend, metered
// on reg.
func InitCaches(ctx context.Context, cfg *configs.MainConfiguration, reg prometheus.Registerer) (*cache.Metered, error) {
	var backend cache.Cache
	switch cfg.Cache.Backend {
	case configs.CacheBackendRedis:
		rc, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			logger.Warnf("Redis not reachable yet: %v", err)
		}
		backend = rc
	default:
		backend = cache.NewShardedCache("rewards", cache.CacheOptions{NumShards: 16, TTL: cfg.Rewards.CacheTTL, CleanInterval: 10 * time.Minute})
	}
	return cache.NewMetered(cacheMetricsNamespace, reg, backend)
}
