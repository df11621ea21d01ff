package balances

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a computed trial balance is served
// before it is recomputed from the ledger.
const DefaultCacheTTL = 10 * time.Minute

// RedisCache stores serialized trial balances in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func trialBalanceKey(year, month int) string {
	return fmt.Sprintf("accounting:trial_balance:%d-%02d", year, month)
}

func (c *RedisCache) GetTrialBalance(ctx context.Context, year, month int) (TrialBalance, bool, error) {
	raw, err := c.client.Get(ctx, trialBalanceKey(year, month)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return TrialBalance{}, false, nil
		}
		return TrialBalance{}, false, err
	}
	var tb TrialBalance
	if err := json.Unmarshal(raw, &tb); err != nil {
		return TrialBalance{}, false, err
	}
	return tb, true, nil
}

func (c *RedisCache) SetTrialBalance(ctx context.Context, tb TrialBalance) error {
	raw, err := json.Marshal(tb)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, trialBalanceKey(tb.Year, tb.Month), raw, c.ttl).Err()
}

func (c *RedisCache) InvalidateTrialBalance(ctx context.Context, year, month int) error {
	return c.client.Del(ctx, trialBalanceKey(year, month)).Err()
}
