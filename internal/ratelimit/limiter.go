package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Limiter reports the quota state for a key, consuming one unit.
type Limiter interface {
	Get(ctx context.Context, key string) (limiter.Context, error)
}

// New builds a limiter for a formatted rate such as "60-M". Counters live in
// Redis when a client is supplied and in process memory otherwise.
func New(rdb *redis.Client, prefix, rate string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(strings.TrimSpace(rate))
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	opts := limiter.StoreOptions{Prefix: prefix}
	var store limiter.Store
	if rdb != nil {
		store, err = limiterredis.NewStoreWithOptions(rdb, opts)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: redis store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	return limiter.New(store, parsed), nil
}
