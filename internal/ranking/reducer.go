package ranking

import "quiz-ranking-service/internal/domain"

// BestAttempts collapses multiple submissions per user into each user's
// single best attempt, using the ranking comparator. Weaker attempts are
// discarded, never averaged. Anonymous submissions carry no user and are
// dropped; they rank live but never appear in an archived leaderboard.
func BestAttempts(subs []domain.Submission) map[string]domain.Submission {
	best := make(map[string]domain.Submission, len(subs))
	for _, sub := range subs {
		if sub.Anonymous() {
			continue
		}
		if current, ok := best[sub.UserID]; !ok || Better(sub, current) {
			best[sub.UserID] = sub
		}
	}
	return best
}

// RankedBest reduces submissions to best-per-user and returns them sorted
// best first. Index i in the result holds rank i+1.
func RankedBest(subs []domain.Submission) []domain.Submission {
	best := BestAttempts(subs)
	ranked := make([]domain.Submission, 0, len(best))
	for _, sub := range best {
		ranked = append(ranked, sub)
	}
	SortBestFirst(ranked)
	return ranked
}
