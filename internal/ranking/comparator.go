package ranking

import (
	"sort"

	"quiz-ranking-service/internal/domain"
)

// Better reports whether a outranks b. Ordering, best first: more correct
// answers, then faster play time, then earlier submission. The submission
// timestamp is the final tie-break, so no two distinct attempts ever
// compare equal. Live rank counting and archived rank assignment both go
// through this function; diverging comparators would let a user's rank
// change across the live/archived transition.
func Better(a, b domain.Submission) bool {
	if a.CorrectCount != b.CorrectCount {
		return a.CorrectCount > b.CorrectCount
	}
	if a.PlayTime != b.PlayTime {
		return a.PlayTime < b.PlayTime
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

// SortBestFirst orders submissions in place, best first.
func SortBestFirst(subs []domain.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		return Better(subs[i], subs[j])
	})
}
