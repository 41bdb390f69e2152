package memory

import (
	"context"
	"sync"

	"quiz-ranking-service/internal/domain"
)

// ArchiveStore keeps frozen rankings in memory. The mutex makes the
// delete+insert of ReplaceEntries atomic for readers, matching what the
// Postgres implementation gets from a transaction.
type ArchiveStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.RankingEntry
}

func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{entries: make(map[string][]domain.RankingEntry)}
}

func (s *ArchiveStore) ReplaceEntries(_ context.Context, challengeID string, entries []domain.RankingEntry) error {
	rows := make([]domain.RankingEntry, len(entries))
	copy(rows, entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[challengeID] = rows
	return nil
}

func (s *ArchiveStore) ListEntries(_ context.Context, challengeID string, limit int) ([]domain.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.entries[challengeID]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]domain.RankingEntry, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *ArchiveStore) FindEntry(_ context.Context, challengeID, userID string) (domain.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries[challengeID] {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return domain.RankingEntry{}, domain.ErrSubmissionNotFound
}

func (s *ArchiveStore) HasEntries(_ context.Context, challengeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[challengeID]) > 0, nil
}
