package ranking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-ranking-service/internal/domain"
	"quiz-ranking-service/internal/infra/memory"
	"quiz-ranking-service/internal/ranking"
)

func TestScoreFormula(t *testing.T) {
	// smoothedAccuracy=(40+12)/(50+20)=0.7429, questionAdjust=10/50=0.2,
	// score=round(5*(0.3+0.7*0.7429)*0.2*10)=round(8.2)=8
	got := ranking.Score(domain.AggregateStat{SolvedQuizCount: 5, TotalCorrect: 40, TotalQuestions: 50})
	if got != 8 {
		t.Fatalf("expected score 8, got %d", got)
	}
}

func TestScoreZeroSolved(t *testing.T) {
	if got := ranking.Score(domain.AggregateStat{TotalCorrect: 10, TotalQuestions: 10}); got != 0 {
		t.Fatalf("expected 0 for zero solved quizzes, got %d", got)
	}
}

func TestScoreCapsQuestionAdjust(t *testing.T) {
	// 100 questions per quiz caps the depth factor at 1.0: the score must
	// match a user averaging exactly 50.
	deep := ranking.Score(domain.AggregateStat{SolvedQuizCount: 2, TotalCorrect: 180, TotalQuestions: 200})
	full := ranking.Score(domain.AggregateStat{SolvedQuizCount: 2, TotalCorrect: 90, TotalQuestions: 100})
	if deep < full {
		t.Fatalf("depth factor should cap at 1.0: deep=%d full=%d", deep, full)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, ranking.DefaultGlobalLimit},
		{-5, ranking.DefaultGlobalLimit},
		{7, 7},
		{100, 100},
		{250, ranking.MaxGlobalLimit},
	}
	for _, tc := range cases {
		if got := ranking.ClampLimit(tc.in); got != tc.want {
			t.Fatalf("ClampLimit(%d): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestPeriodWindows(t *testing.T) {
	// A Wednesday afternoon.
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)

	from, to, err := ranking.PeriodWindow(domain.PeriodToday, now)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if from.Day() != 26 || from.Hour() != 0 || !to.Equal(from.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected TODAY window: %v .. %v", from, to)
	}

	from, to, err = ranking.PeriodWindow(domain.PeriodYesterday, now)
	if err != nil {
		t.Fatalf("yesterday: %v", err)
	}
	if from.Day() != 25 || to.Day() != 26 {
		t.Fatalf("unexpected YESTERDAY window: %v .. %v", from, to)
	}

	from, _, err = ranking.PeriodWindow(domain.PeriodWeek, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if from.Weekday() != time.Monday || from.Day() != 24 {
		t.Fatalf("expected Monday the 24th, got %v", from)
	}

	// Sunday still aligns to the Monday six days earlier.
	sunday := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	from, _, err = ranking.PeriodWindow(domain.PeriodWeek, sunday)
	if err != nil {
		t.Fatalf("week from sunday: %v", err)
	}
	if from.Weekday() != time.Monday || from.Day() != 24 {
		t.Fatalf("expected Monday the 24th from Sunday, got %v", from)
	}

	if _, _, err := ranking.PeriodWindow(domain.Period("LAST_YEAR"), now); err != domain.ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestGlobalRankingOrderAndTieBreak(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)

	stats := memory.NewStatsStore()
	// u-low scores below the tied pair; the tie resolves by userID.
	stats.Add(domain.AggregateStat{UserID: "u-b", Nickname: "Bob", SolvedQuizCount: 5, TotalCorrect: 40, TotalQuestions: 50}, now)
	stats.Add(domain.AggregateStat{UserID: "u-a", Nickname: "Alice", SolvedQuizCount: 5, TotalCorrect: 40, TotalQuestions: 50}, now)
	stats.Add(domain.AggregateStat{UserID: "u-low", Nickname: "Carol", SolvedQuizCount: 1, TotalCorrect: 2, TotalQuestions: 10}, now)

	cache := memory.NewResultCacheWithClock(func() time.Time { return now })
	service := ranking.NewGlobalServiceWithClock(stats, cache, time.Minute, func() time.Time { return now })

	entries, err := service.GlobalRanking(ctx, domain.PeriodToday, 0)
	if err != nil {
		t.Fatalf("global ranking: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"u-a", "u-b", "u-low"}
	for i, userID := range wantOrder {
		if entries[i].UserID != userID || entries[i].Rank != i+1 {
			t.Fatalf("position %d: expected %s at rank %d, got %+v", i, userID, i+1, entries[i])
		}
	}
	if entries[0].Score != entries[1].Score {
		t.Fatalf("expected tied scores for u-a/u-b, got %v vs %v", entries[0].Score, entries[1].Score)
	}
}

func TestGlobalRankingRespectsWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)

	stats := memory.NewStatsStore()
	stats.Add(domain.AggregateStat{UserID: "u-today", Nickname: "Today", SolvedQuizCount: 3, TotalCorrect: 20, TotalQuestions: 30}, now)
	stats.Add(domain.AggregateStat{UserID: "u-old", Nickname: "Old", SolvedQuizCount: 3, TotalCorrect: 20, TotalQuestions: 30}, now.AddDate(0, 0, -3))

	cache := memory.NewResultCacheWithClock(func() time.Time { return now })
	service := ranking.NewGlobalServiceWithClock(stats, cache, time.Minute, func() time.Time { return now })

	entries, err := service.GlobalRanking(ctx, domain.PeriodToday, 0)
	if err != nil {
		t.Fatalf("global ranking: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u-today" {
		t.Fatalf("expected only today's user, got %+v", entries)
	}
}

func TestGlobalRankingCached(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)

	base := memory.NewStatsStore()
	base.Add(domain.AggregateStat{
		UserID: "u1", Nickname: "Alice", SolvedQuizCount: 5, TotalCorrect: 40, TotalQuestions: 50,
	}, now)
	counting := &countingStatsStore{StatsStore: base}

	cache := memory.NewResultCacheWithClock(func() time.Time { return now })
	service := ranking.NewGlobalServiceWithClock(counting, cache, time.Minute, func() time.Time { return now })

	if _, err := service.GlobalRanking(ctx, domain.PeriodToday, 20); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := service.GlobalRanking(ctx, domain.PeriodToday, 20); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if counting.calls != 1 {
		t.Fatalf("expected cached second call, store queried %d times", counting.calls)
	}

	// A different limit is a different cache key.
	if _, err := service.GlobalRanking(ctx, domain.PeriodToday, 5); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if counting.calls != 2 {
		t.Fatalf("expected distinct cache entry per limit, store queried %d times", counting.calls)
	}
}

type countingStatsStore struct {
	ranking.StatsStore
	mu    sync.Mutex
	calls int
}

func (s *countingStatsStore) ListAggregateStats(ctx context.Context, from, to time.Time, limit int) ([]domain.AggregateStat, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.StatsStore.ListAggregateStats(ctx, from, to, limit)
}
