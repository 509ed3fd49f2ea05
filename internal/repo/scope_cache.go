package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/resilience"
)

const scopeKeyPrefix = "promo:coupon:scope:"

// ScopeCache caches coupon scopes in Redis in front of another ScopeSource.
// Redis failures fall through to the source.
type ScopeCache struct {
	Source discount.ScopeSource
	Client *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
	// Breaker, when set, skips Redis entirely while it is failing.
	Breaker *resilience.Breaker
}

// ScopeKey returns the Redis key holding a coupon's scope.
func ScopeKey(couponID int64) string {
	return scopeKeyPrefix + strconv.FormatInt(couponID, 10)
}

// ScopeBizIDs implements discount.ScopeSource.
func (c *ScopeCache) ScopeBizIDs(ctx context.Context, couponID int64) ([]int64, error) {
	if c.Client == nil {
		return c.Source.ScopeBizIDs(ctx, couponID)
	}
	key := ScopeKey(couponID)
	var raw []byte
	err := c.guard(ctx, func() error {
		var getErr error
		raw, getErr = c.Client.Get(ctx, key).Bytes()
		return getErr
	})
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		obs.CountScopeCache("bypass")
		return c.Source.ScopeBizIDs(ctx, couponID)
	case err == nil:
		var ids []int64
		if jsonErr := json.Unmarshal(raw, &ids); jsonErr == nil {
			obs.CountScopeCache("hit")
			return ids, nil
		}
		obs.CountScopeCache("error")
	case errors.Is(err, redis.Nil):
		obs.CountScopeCache("miss")
	default:
		obs.CountScopeCache("error")
		c.Logger.Warn().Err(err).Int64("coupon_id", couponID).Msg("scope cache read failed")
	}

	ids, err := c.Source.ScopeBizIDs(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	encoded, _ := json.Marshal(ids)
	if err := c.guard(ctx, func() error { return c.Client.Set(ctx, key, encoded, c.ttl()).Err() }); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
		c.Logger.Warn().Err(err).Int64("coupon_id", couponID).Msg("scope cache write failed")
	}
	return ids, nil
}

// Invalidate drops cached scopes for the given coupons.
func (c *ScopeCache) Invalidate(ctx context.Context, couponIDs ...int64) error {
	if c.Client == nil || len(couponIDs) == 0 {
		return nil
	}
	keys := make([]string, len(couponIDs))
	for i, id := range couponIDs {
		keys[i] = ScopeKey(id)
	}
	return c.Client.Del(ctx, keys...).Err()
}

func (c *ScopeCache) guard(ctx context.Context, fn func() error) error {
	if c.Breaker == nil {
		return fn()
	}
	return c.Breaker.Do(ctx, fn, redis.Nil)
}

func (c *ScopeCache) ttl() time.Duration {
	if c.TTL <= 0 {
		return 10 * time.Minute
	}
	return c.TTL
}
