package memory

import (
	"context"
	"sync"

	"quiz-ranking-service/internal/domain"
)

// ChallengeStore is an in-memory ChallengeRepository (useful for tests/demos).
type ChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]domain.Challenge
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{challenges: make(map[string]domain.Challenge)}
}

func (s *ChallengeStore) Put(challenge domain.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.ID] = challenge
}

func (s *ChallengeStore) GetChallenge(_ context.Context, challengeID string) (domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if challenge, ok := s.challenges[challengeID]; ok {
		return challenge, nil
	}
	return domain.Challenge{}, domain.ErrChallengeNotFound
}
