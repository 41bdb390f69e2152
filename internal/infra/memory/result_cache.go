package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-ranking-service/internal/domain"
)

// ResultCache memoizes resolved rankings in process with per-entry TTL.
type ResultCache struct {
	clock func() time.Time
	rnd   *rand.Rand

	mu           sync.RWMutex
	leaderboards map[string]cachedLeaderboard
	results      map[string]cachedResult
	globals      map[string]cachedGlobal
}

type cachedLeaderboard struct {
	view      domain.LeaderboardView
	expiresAt time.Time
}

type cachedResult struct {
	result    domain.ChallengeResult
	expiresAt time.Time
}

type cachedGlobal struct {
	entries   []domain.RankedUser
	expiresAt time.Time
}

func NewResultCache() *ResultCache {
	return NewResultCacheWithClock(time.Now)
}

// NewResultCacheWithClock allows deterministic expiry in tests.
func NewResultCacheWithClock(now func() time.Time) *ResultCache {
	return &ResultCache{
		clock:        now,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		leaderboards: make(map[string]cachedLeaderboard),
		results:      make(map[string]cachedResult),
		globals:      make(map[string]cachedGlobal),
	}
}

func (c *ResultCache) GetLeaderboard(_ context.Context, key string) (domain.LeaderboardView, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.leaderboards[key]; ok && entry.expiresAt.After(now) {
		return entry.view, true
	}
	return domain.LeaderboardView{}, false
}

func (c *ResultCache) SetLeaderboard(_ context.Context, key string, view domain.LeaderboardView, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboards[key] = cachedLeaderboard{view: view, expiresAt: c.clock().Add(c.ttlWithJitter(ttl))}
}

func (c *ResultCache) GetResult(_ context.Context, key string) (domain.ChallengeResult, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.results[key]; ok && entry.expiresAt.After(now) {
		return entry.result, true
	}
	return domain.ChallengeResult{}, false
}

func (c *ResultCache) SetResult(_ context.Context, key string, result domain.ChallengeResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = cachedResult{result: result, expiresAt: c.clock().Add(c.ttlWithJitter(ttl))}
}

func (c *ResultCache) GetGlobal(_ context.Context, key string) ([]domain.RankedUser, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.globals[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	out := make([]domain.RankedUser, len(entry.entries))
	copy(out, entry.entries)
	return out, true
}

func (c *ResultCache) SetGlobal(_ context.Context, key string, entries []domain.RankedUser, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	rows := make([]domain.RankedUser, len(entries))
	copy(rows, entries)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globals[key] = cachedGlobal{entries: rows, expiresAt: c.clock().Add(c.ttlWithJitter(ttl))}
}

// ttlWithJitter adds up to 10% jitter to spread expirations.
func (c *ResultCache) ttlWithJitter(ttl time.Duration) time.Duration {
	jitterMax := int64(ttl) / 10
	if jitterMax <= 0 {
		return ttl
	}
	return ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
