package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-ranking-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StatsStore aggregates per-user quiz statistics for the global ranking.
type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

func (s *StatsStore) ListAggregateStats(ctx context.Context, from, to time.Time, limit int) ([]domain.AggregateStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, max(nickname), max(COALESCE(profile_image_url, '')),
		        count(*), COALESCE(sum(correct_count), 0), COALESCE(sum(total_questions), 0)
		   FROM quiz_results
		  WHERE user_id IS NOT NULL AND created_at >= $1 AND created_at < $2
		  GROUP BY user_id
		  ORDER BY sum(correct_count) DESC
		  LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list aggregate stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.AggregateStat
	for rows.Next() {
		var stat domain.AggregateStat
		if err := rows.Scan(&stat.UserID, &stat.Nickname, &stat.ProfileImageURL,
			&stat.SolvedQuizCount, &stat.TotalCorrect, &stat.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scan aggregate stat: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list aggregate stats: %w", err)
	}
	return stats, nil
}
