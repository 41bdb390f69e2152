package memory

import (
	"context"
	"sync"
	"time"

	"quiz-ranking-service/internal/domain"
	"quiz-ranking-service/internal/ranking"
)

// SubmissionStore is an in-memory read model over recorded attempts.
// The ranking core only reads it; Add exists for seeding and tests.
type SubmissionStore struct {
	mu          sync.RWMutex
	byChallenge map[string][]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{byChallenge: make(map[string][]domain.Submission)}
}

func (s *SubmissionStore) Add(sub domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChallenge[sub.ChallengeID] = append(s.byChallenge[sub.ChallengeID], sub)
}

// CountBetter counts submissions strictly outranking the candidate. The
// candidate itself never compares better than itself, so its own stored
// row is naturally excluded from the count.
func (s *SubmissionStore) CountBetter(_ context.Context, challengeID string, correctCount int, playTime float64, submittedAt time.Time) (int, error) {
	candidate := domain.Submission{CorrectCount: correctCount, PlayTime: playTime, SubmittedAt: submittedAt}

	s.mu.RLock()
	defer s.mu.RUnlock()
	better := 0
	for _, sub := range s.byChallenge[challengeID] {
		if ranking.Better(sub, candidate) {
			better++
		}
	}
	return better, nil
}

func (s *SubmissionStore) ListSubmissions(_ context.Context, challengeID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := s.byChallenge[challengeID]
	out := make([]domain.Submission, len(subs))
	copy(out, subs)
	return out, nil
}

// FindUserSubmission returns the user's best attempt for the challenge.
func (s *SubmissionStore) FindUserSubmission(_ context.Context, challengeID, userID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best domain.Submission
	found := false
	for _, sub := range s.byChallenge[challengeID] {
		if sub.UserID != userID {
			continue
		}
		if !found || ranking.Better(sub, best) {
			best = sub
			found = true
		}
	}
	if !found {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return best, nil
}
