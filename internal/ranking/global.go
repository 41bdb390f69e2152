package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"quiz-ranking-service/internal/domain"
)

const (
	// DefaultGlobalLimit is used when a caller passes no limit.
	DefaultGlobalLimit = 20
	// MaxGlobalLimit caps how many rows one request may ask for.
	MaxGlobalLimit = 100
	// DefaultGlobalTTL is longer than the challenge-result TTL because the
	// underlying aggregates change slowly.
	DefaultGlobalTTL = 5 * time.Minute

	// Bayesian prior for smoothed accuracy: 20 pseudo-questions at 60%.
	priorQuestions = 20.0
	priorAccuracy  = 0.6
	// A quiz with 50+ questions per solve counts as full depth.
	fullDepthQuestions = 50.0
)

// StatsStore reads per-user aggregate statistics inside a time window.
type StatsStore interface {
	ListAggregateStats(ctx context.Context, from, to time.Time, limit int) ([]domain.AggregateStat, error)
}

// GlobalService computes the periodic platform-wide leaderboard. It is a
// pure read path: no writes, no live/archived state machine.
type GlobalService struct {
	stats StatsStore
	cache ResultCache
	ttl   time.Duration
	clock func() time.Time
}

func NewGlobalService(stats StatsStore, cache ResultCache, ttl time.Duration) *GlobalService {
	return newGlobalServiceWithClock(stats, cache, ttl, time.Now)
}

// NewGlobalServiceWithClock is test-only for deterministic windows.
func NewGlobalServiceWithClock(stats StatsStore, cache ResultCache, ttl time.Duration, now func() time.Time) *GlobalService {
	return newGlobalServiceWithClock(stats, cache, ttl, now)
}

func newGlobalServiceWithClock(stats StatsStore, cache ResultCache, ttl time.Duration, now func() time.Time) *GlobalService {
	if ttl <= 0 {
		ttl = DefaultGlobalTTL
	}
	return &GlobalService{stats: stats, cache: cache, ttl: ttl, clock: now}
}

// GlobalRanking returns up to limit users ordered by descending score for
// the requested period. The limit is clamped to 1..MaxGlobalLimit with
// DefaultGlobalLimit when unset.
func (g *GlobalService) GlobalRanking(ctx context.Context, period domain.Period, limit int) ([]domain.RankedUser, error) {
	limit = ClampLimit(limit)
	key := fmt.Sprintf("global:%s:%d", period, limit)
	if entries, ok := g.cache.GetGlobal(ctx, key); ok {
		return entries, nil
	}

	from, to, err := PeriodWindow(period, g.clock())
	if err != nil {
		return nil, err
	}
	stats, err := g.stats.ListAggregateStats(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.RankedUser, 0, len(stats))
	for _, stat := range stats {
		entries = append(entries, domain.RankedUser{
			UserID:      stat.UserID,
			DisplayName: stat.Nickname,
			Score:       float64(Score(stat)),
		})
	}
	// Score ties fall back to userID so the order never depends on how the
	// store happens to return rows.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	g.cache.SetGlobal(ctx, key, entries, g.ttl)
	return entries, nil
}

// Score turns one user's window aggregates into a leaderboard score.
// Accuracy is smoothed with a Bayesian prior so users with very few
// attempts are not overweighted, and shallow quizzes earn proportionally
// less than full-depth ones.
func Score(stat domain.AggregateStat) int {
	if stat.SolvedQuizCount == 0 {
		return 0
	}
	smoothedAccuracy := (float64(stat.TotalCorrect) + priorQuestions*priorAccuracy) /
		(float64(stat.TotalQuestions) + priorQuestions)
	avgQuestionsPerQuiz := float64(stat.TotalQuestions) / float64(stat.SolvedQuizCount)
	questionAdjust := math.Min(1.0, avgQuestionsPerQuiz/fullDepthQuestions)
	return int(math.Round(float64(stat.SolvedQuizCount) * (0.3 + 0.7*smoothedAccuracy) * questionAdjust * 10))
}

// ClampLimit normalizes a requested row count to 1..MaxGlobalLimit,
// defaulting when the caller passes zero or less.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultGlobalLimit
	}
	if limit > MaxGlobalLimit {
		return MaxGlobalLimit
	}
	return limit
}

// PeriodWindow resolves a period token to a half-open [from, to) window.
// TODAY and YESTERDAY are midnight-aligned calendar days; WEEK starts on
// the most recent Monday.
func PeriodWindow(period domain.Period, now time.Time) (time.Time, time.Time, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case domain.PeriodToday:
		return midnight, midnight.AddDate(0, 0, 1), nil
	case domain.PeriodYesterday:
		return midnight.AddDate(0, 0, -1), midnight, nil
	case domain.PeriodWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		monday := midnight.AddDate(0, 0, -daysSinceMonday)
		return monday, monday.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
}
