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

// SubmissionStore reads challenge attempts from Postgres. The ranking
// core never writes here; submissions are owned by the quiz-play flow.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

// CountBetter pushes the three-level comparator into SQL so a live rank
// costs one counting query instead of sorting every submission in the
// service. Strict comparisons keep the candidate's own row out of the
// count.
func (s *SubmissionStore) CountBetter(ctx context.Context, challengeID string, correctCount int, playTime float64, submittedAt time.Time) (int, error) {
	var better int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM challenge_submissions
		  WHERE challenge_id = $1
		    AND (correct_count > $2
		      OR (correct_count = $2 AND play_time < $3)
		      OR (correct_count = $2 AND play_time = $3 AND submitted_at < $4))`,
		challengeID, correctCount, playTime, submittedAt).Scan(&better)
	if err != nil {
		return 0, fmt.Errorf("count better submissions: %w", err)
	}
	return better, nil
}

func (s *SubmissionStore) ListSubmissions(ctx context.Context, challengeID string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, challenge_id, quiz_id, COALESCE(user_id, ''), nickname, correct_count, play_time, submitted_at
		   FROM challenge_submissions WHERE challenge_id = $1`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(&sub.ID, &sub.ChallengeID, &sub.QuizID, &sub.UserID, &sub.Nickname,
			&sub.CorrectCount, &sub.PlayTime, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// FindUserSubmission returns the user's best attempt, ordered by the same
// comparator used for ranking.
func (s *SubmissionStore) FindUserSubmission(ctx context.Context, challengeID, userID string) (domain.Submission, error) {
	var sub domain.Submission
	err := s.pool.QueryRow(ctx,
		`SELECT id, challenge_id, quiz_id, COALESCE(user_id, ''), nickname, correct_count, play_time, submitted_at
		   FROM challenge_submissions
		  WHERE challenge_id = $1 AND user_id = $2
		  ORDER BY correct_count DESC, play_time ASC, submitted_at ASC
		  LIMIT 1`, challengeID, userID).
		Scan(&sub.ID, &sub.ChallengeID, &sub.QuizID, &sub.UserID, &sub.Nickname,
			&sub.CorrectCount, &sub.PlayTime, &sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("find user submission: %w", err)
	}
	return sub, nil
}
