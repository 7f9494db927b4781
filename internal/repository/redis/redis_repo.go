package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
)

const (
	cachePrefix  = "rul:cache:"
	cacheTTL     = 10 * time.Minute
	processedKey = "rul:stats:processed"
	failedKey    = "rul:stats:failed"
)

// RedisRepo caches predicted RUL values by window digest and keeps the
// running processed/failed counters.
type RedisRepo struct {
	Client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{Client: client}
}

func (r *RedisRepo) GetRUL(ctx context.Context, digest string) (float64, bool, error) {
	val, err := r.Client.Get(ctx, cachePrefix+digest).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	rul, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, err
	}
	return rul, true, nil
}

func (r *RedisRepo) SetRUL(ctx context.Context, digest string, rul float64) error {
	return r.Client.Set(ctx, cachePrefix+digest, strconv.FormatFloat(rul, 'g', -1, 64), cacheTTL).Err()
}

func (r *RedisRepo) IncrCounters(ctx context.Context, processed, failed int64) error {
	pipe := r.Client.Pipeline()
	if processed > 0 {
		pipe.IncrBy(ctx, processedKey, processed)
	}
	if failed > 0 {
		pipe.IncrBy(ctx, failedKey, failed)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRepo) Stats(ctx context.Context) (entity.ServiceStats, error) {
	var stats entity.ServiceStats
	for _, kv := range []struct {
		key string
		dst *int64
	}{
		{processedKey, &stats.Processed},
		{failedKey, &stats.Failed},
	} {
		val, err := r.Client.Get(ctx, kv.key).Int64()
		if err != nil && err != redis.Nil {
			return entity.ServiceStats{}, err
		}
		*kv.dst = val
	}
	return stats, nil
}
