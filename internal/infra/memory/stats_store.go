package memory

import (
	"context"
	"sync"
	"time"

	"quiz-ranking-service/internal/domain"
)

// StatsStore serves pre-aggregated per-user statistics from memory
// (useful for tests/demos). Rows are tagged with a timestamp so window
// queries behave like the SQL aggregate.
type StatsStore struct {
	mu   sync.RWMutex
	rows []statRow
}

type statRow struct {
	stat domain.AggregateStat
	at   time.Time
}

func NewStatsStore() *StatsStore {
	return &StatsStore{}
}

func (s *StatsStore) Add(stat domain.AggregateStat, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, statRow{stat: stat, at: at})
}

func (s *StatsStore) ListAggregateStats(_ context.Context, from, to time.Time, limit int) ([]domain.AggregateStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AggregateStat, 0, limit)
	for _, row := range s.rows {
		if row.at.Before(from) || !row.at.Before(to) {
			continue
		}
		out = append(out, row.stat)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
