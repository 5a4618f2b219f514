package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// KeyPrefix namespaces season tables in a shared Redis.
const KeyPrefix = "pfr:rushing:"

// RedisAPI is the slice of *redis.Client the cache needs.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis shares season tables between dashboard replicas.
type Redis struct {
	client RedisAPI
	prefix string
}

func NewRedis(client RedisAPI) *Redis {
	return &Redis{client: client, prefix: KeyPrefix}
}

// NewRedisFromURL dials redis://... the way the service mains do.
func NewRedisFromURL(url string) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	return NewRedis(client), client, nil
}

func (r *Redis) key(year int) string {
	return fmt.Sprintf("%s%d", r.prefix, year)
}

func (r *Redis) Get(ctx context.Context, year int) (stats.Table, bool, error) {
	data, err := r.client.Get(ctx, r.key(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return stats.Table{}, false, nil
	}
	if err != nil {
		return stats.Table{}, false, fmt.Errorf("redis get %s: %w", r.key(year), err)
	}
	var t stats.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return stats.Table{}, false, fmt.Errorf("unmarshaling table %d: %w", year, err)
	}
	return t, true, nil
}

// Set stores without TTL.
func (r *Redis) Set(ctx context.Context, year int, t stats.Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling table %d: %w", year, err)
	}
	return r.client.Set(ctx, r.key(year), data, 0).Err()
}
