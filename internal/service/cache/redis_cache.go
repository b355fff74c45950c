package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds each cache round trip so a stalled Redis node can
// never hold up a read handler longer than this.
const redisOpTimeout = 200 * time.Millisecond

// RedisCache backs BytesCache with a shared Redis instance. Useful when
// several simulator replicas sit behind one load balancer and should serve
// the same cached snapshots.
type RedisCache struct {
	cli    *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the simulator's keys so a shared Redis DB stays
	// readable. Empty means no prefix.
	Prefix string
}

func NewRedisCache(cfg RedisConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
	})
	return &RedisCache{cli: rdb, prefix: cfg.Prefix}
}

// Ping verifies the connection. Called once at startup so a bad address
// fails fast instead of on the first request.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

func (r *RedisCache) GetBytes(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	b, err := r.cli.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return r.cli.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.cli.Close()
}
