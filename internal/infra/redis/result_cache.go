package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-ranking-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResultCache memoizes resolved rankings in Redis as JSON values with a
// per-key TTL, so multiple service instances share the same warm cache.
// Cache failures are treated as misses; ranking display is best-effort
// and must not fail a request because Redis is down.
type ResultCache struct {
	client *redis.Client
}

func NewResultCache(client *redis.Client) *ResultCache {
	return &ResultCache{client: client}
}

func (c *ResultCache) GetLeaderboard(ctx context.Context, key string) (domain.LeaderboardView, bool) {
	var view domain.LeaderboardView
	if !c.get(ctx, leaderboardKey(key), &view) {
		return domain.LeaderboardView{}, false
	}
	return view, true
}

func (c *ResultCache) SetLeaderboard(ctx context.Context, key string, view domain.LeaderboardView, ttl time.Duration) {
	c.set(ctx, leaderboardKey(key), view, ttl)
}

func (c *ResultCache) GetResult(ctx context.Context, key string) (domain.ChallengeResult, bool) {
	var result domain.ChallengeResult
	if !c.get(ctx, resultKey(key), &result) {
		return domain.ChallengeResult{}, false
	}
	return result, true
}

func (c *ResultCache) SetResult(ctx context.Context, key string, result domain.ChallengeResult, ttl time.Duration) {
	c.set(ctx, resultKey(key), result, ttl)
}

func (c *ResultCache) GetGlobal(ctx context.Context, key string) ([]domain.RankedUser, bool) {
	var entries []domain.RankedUser
	if !c.get(ctx, globalKey(key), &entries) {
		return nil, false
	}
	return entries, true
}

func (c *ResultCache) SetGlobal(ctx context.Context, key string, entries []domain.RankedUser, ttl time.Duration) {
	c.set(ctx, globalKey(key), entries, ttl)
}

func (c *ResultCache) get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *ResultCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, ttlWithJitter(ttl)).Err()
}

func leaderboardKey(key string) string { return "ranking:lb:" + key }
func resultKey(key string) string      { return "ranking:result:" + key }
func globalKey(key string) string      { return "ranking:global:" + key }

// ttlWithJitter adds up to 10% jitter to spread expirations.
func ttlWithJitter(ttl time.Duration) time.Duration {
	jitterMax := int64(ttl) / 10
	if jitterMax <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(jitterMax+1))
}
