package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-ranking-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ChallengeRepository reads challenge metadata from Postgres.
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	var (
		challenge domain.Challenge
		endAt     *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, challenge_type, start_at, end_at, grace_seconds
		   FROM challenges WHERE id=$1`, challengeID).
		Scan(&challenge.ID, &challenge.QuizID, &challenge.Type, &challenge.StartAt, &endAt, &challenge.GraceSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}
	challenge.EndAt = endAt
	return challenge, nil
}
