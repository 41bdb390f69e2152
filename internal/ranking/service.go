package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-ranking-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TopSize is how many rows a resolved leaderboard carries.
const TopSize = 10

// DefaultResultTTL bounds staleness of cached challenge views while a
// challenge is live, without invalidating on every new submission.
const DefaultResultTTL = 10 * time.Second

// ChallengeRepository loads challenge metadata.
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
}

// SubmissionStore is the read-only view over recorded attempts.
type SubmissionStore interface {
	// CountBetter returns how many submissions for the challenge strictly
	// outrank the given result under the ranking comparator.
	CountBetter(ctx context.Context, challengeID string, correctCount int, playTime float64, submittedAt time.Time) (int, error)
	ListSubmissions(ctx context.Context, challengeID string) ([]domain.Submission, error)
	// FindUserSubmission returns the user's best attempt, or
	// domain.ErrSubmissionNotFound if the user never submitted.
	FindUserSubmission(ctx context.Context, challengeID, userID string) (domain.Submission, error)
}

// ArchiveRepository stores frozen rankings. ReplaceEntries must apply the
// delete+insert as one atomic unit so readers never observe a
// partially-emptied archive.
type ArchiveRepository interface {
	ReplaceEntries(ctx context.Context, challengeID string, entries []domain.RankingEntry) error
	ListEntries(ctx context.Context, challengeID string, limit int) ([]domain.RankingEntry, error)
	// FindEntry returns domain.ErrSubmissionNotFound when the user has no archived row.
	FindEntry(ctx context.Context, challengeID, userID string) (domain.RankingEntry, error)
	HasEntries(ctx context.Context, challengeID string) (bool, error)
}

// ResultCache memoizes expensive rank computations. Implementations must
// tolerate concurrent access; a miss is never an error.
type ResultCache interface {
	GetLeaderboard(ctx context.Context, key string) (domain.LeaderboardView, bool)
	SetLeaderboard(ctx context.Context, key string, view domain.LeaderboardView, ttl time.Duration)
	GetResult(ctx context.Context, key string) (domain.ChallengeResult, bool)
	SetResult(ctx context.Context, key string, result domain.ChallengeResult, ttl time.Duration)
	GetGlobal(ctx context.Context, key string) ([]domain.RankedUser, bool)
	SetGlobal(ctx context.Context, key string, entries []domain.RankedUser, ttl time.Duration)
}

// LeaderboardService resolves challenge leaderboards and owns the one-time
// live-to-archived transition.
type LeaderboardService struct {
	challenges  ChallengeRepository
	submissions SubmissionStore
	archive     ArchiveRepository
	cache       ResultCache
	ttl         time.Duration
	clock       func() time.Time
	finalizes   singleflight.Group
}

func NewLeaderboardService(challenges ChallengeRepository, submissions SubmissionStore, archive ArchiveRepository, cache ResultCache, ttl time.Duration) *LeaderboardService {
	return newLeaderboardServiceWithClock(challenges, submissions, archive, cache, ttl, time.Now)
}

// NewLeaderboardServiceWithClock is test-only for deterministic expiry.
func NewLeaderboardServiceWithClock(challenges ChallengeRepository, submissions SubmissionStore, archive ArchiveRepository, cache ResultCache, ttl time.Duration, now func() time.Time) *LeaderboardService {
	return newLeaderboardServiceWithClock(challenges, submissions, archive, cache, ttl, now)
}

func newLeaderboardServiceWithClock(challenges ChallengeRepository, submissions SubmissionStore, archive ArchiveRepository, cache ResultCache, ttl time.Duration, now func() time.Time) *LeaderboardService {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &LeaderboardService{
		challenges:  challenges,
		submissions: submissions,
		archive:     archive,
		cache:       cache,
		ttl:         ttl,
		clock:       now,
	}
}

// ResolveLeaderboard assembles the top entries plus the requesting user's
// own row. An empty userID is an anonymous viewer and yields a guest
// zero-value entry rather than an error.
func (s *LeaderboardService) ResolveLeaderboard(ctx context.Context, challengeID, userID string) (domain.LeaderboardView, error) {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.LeaderboardView{}, err
	}

	expired := challenge.Expired(s.clock())
	// The live/archived state is part of the cache key so a view cached
	// just before expiry can never be served as the frozen result.
	key := leaderboardKey(challengeID, userID, expired)
	if view, ok := s.cache.GetLeaderboard(ctx, key); ok {
		return view, nil
	}

	var view domain.LeaderboardView
	if expired {
		if err := s.ensureArchived(ctx, challengeID); err != nil {
			return domain.LeaderboardView{}, err
		}
		view, err = s.archivedView(ctx, challenge, userID)
	} else {
		view, err = s.liveView(ctx, challenge, userID)
	}
	if err != nil {
		return domain.LeaderboardView{}, err
	}

	s.cache.SetLeaderboard(ctx, key, view, s.ttl)
	return view, nil
}

// ChallengeResult returns the requesting user's rank and timing for a
// challenge. Play time is also formatted with millisecond precision for
// display.
func (s *LeaderboardService) ChallengeResult(ctx context.Context, challengeID, userID string) (domain.ChallengeResult, error) {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.ChallengeResult{}, err
	}

	expired := challenge.Expired(s.clock())
	key := resultKey(challengeID, userID, expired)
	if result, ok := s.cache.GetResult(ctx, key); ok {
		return result, nil
	}

	var entry domain.RankedUser
	if expired {
		if err := s.ensureArchived(ctx, challengeID); err != nil {
			return domain.ChallengeResult{}, err
		}
		entry, err = s.archivedEntry(ctx, challenge, userID)
	} else {
		entry, err = s.liveEntry(ctx, challenge, userID)
	}
	if err != nil {
		return domain.ChallengeResult{}, err
	}

	result := domain.ChallengeResult{
		Rank:          entry.Rank,
		CorrectCount:  int(entry.Score),
		PlayTime:      entry.PlayTime,
		FormattedTime: fmt.Sprintf("%.3f", entry.PlayTime),
		ChallengeType: challenge.Type,
	}
	s.cache.SetResult(ctx, key, result, s.ttl)
	return result, nil
}

// LiveRank returns the 1-based rank the given result would occupy among
// all submissions currently recorded for the challenge. With no
// submissions recorded, any candidate ranks first.
func (s *LeaderboardService) LiveRank(ctx context.Context, challengeID string, correctCount int, playTime float64, submittedAt time.Time) (int, error) {
	better, err := s.submissions.CountBetter(ctx, challengeID, correctCount, playTime, submittedAt)
	if err != nil {
		return 0, err
	}
	return better + 1, nil
}

// Finalize freezes the ranking for a challenge: best attempt per user,
// sorted by the comparator, dense ranks 1..N, archived as one atomic
// delete+insert. Idempotent and safe to invoke concurrently; a challenge
// with no submissions archives nothing.
func (s *LeaderboardService) Finalize(ctx context.Context, challengeID string) error {
	_, err, _ := s.finalizes.Do(challengeID, func() (interface{}, error) {
		subs, err := s.submissions.ListSubmissions(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		ranked := RankedBest(subs)
		if len(ranked) == 0 {
			return nil, nil
		}

		now := s.clock()
		entries := make([]domain.RankingEntry, len(ranked))
		for i, sub := range ranked {
			entries[i] = domain.RankingEntry{
				ChallengeID: challengeID,
				UserID:      sub.UserID,
				Nickname:    sub.Nickname,
				Rank:        i + 1,
				Score:       float64(sub.CorrectCount),
				PlayTime:    sub.PlayTime,
				CreatedAt:   now,
			}
		}
		return nil, s.archive.ReplaceEntries(ctx, challengeID, entries)
	})
	return err
}

// IsExpired reports whether the challenge's time window has ended.
func (s *LeaderboardService) IsExpired(ctx context.Context, challengeID string) (bool, error) {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return false, err
	}
	return challenge.Expired(s.clock()), nil
}

// VerifySubmittable reports whether the challenge still accepts
// submissions, allowing the configured grace period past the end time.
// Exposed for the submit flow; the ranking core itself never writes
// submissions.
func (s *LeaderboardService) VerifySubmittable(ctx context.Context, challengeID string) error {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.EndAt == nil {
		return nil
	}
	deadline := challenge.EndAt.Add(time.Duration(challenge.GraceSeconds) * time.Second)
	if s.clock().After(deadline) {
		return domain.ErrChallengeClosed
	}
	return nil
}

func (s *LeaderboardService) ensureArchived(ctx context.Context, challengeID string) error {
	archived, err := s.archive.HasEntries(ctx, challengeID)
	if err != nil {
		return err
	}
	if archived {
		return nil
	}
	return s.Finalize(ctx, challengeID)
}

func (s *LeaderboardService) liveView(ctx context.Context, challenge domain.Challenge, userID string) (domain.LeaderboardView, error) {
	subs, err := s.submissions.ListSubmissions(ctx, challenge.ID)
	if err != nil {
		return domain.LeaderboardView{}, err
	}

	ranked := RankedBest(subs)
	top := make([]domain.RankedUser, 0, TopSize)
	for i, sub := range ranked {
		if i == TopSize {
			break
		}
		top = append(top, rankedFromSubmission(sub, i+1, challenge.Type))
	}

	my := domain.GuestEntry(challenge.Type)
	if userID != "" {
		entry, err := s.liveEntry(ctx, challenge, userID)
		switch {
		case err == nil:
			my = entry
		case !errors.Is(err, domain.ErrSubmissionNotFound):
			return domain.LeaderboardView{}, err
		}
	}
	return domain.LeaderboardView{TopEntries: top, MyEntry: my}, nil
}

func (s *LeaderboardService) archivedView(ctx context.Context, challenge domain.Challenge, userID string) (domain.LeaderboardView, error) {
	entries, err := s.archive.ListEntries(ctx, challenge.ID, TopSize)
	if err != nil {
		return domain.LeaderboardView{}, err
	}
	top := make([]domain.RankedUser, 0, len(entries))
	for _, entry := range entries {
		top = append(top, rankedFromEntry(entry, challenge.Type))
	}

	my := domain.GuestEntry(challenge.Type)
	if userID != "" {
		entry, err := s.archivedEntry(ctx, challenge, userID)
		switch {
		case err == nil:
			my = entry
		case !errors.Is(err, domain.ErrSubmissionNotFound):
			return domain.LeaderboardView{}, err
		}
	}
	return domain.LeaderboardView{TopEntries: top, MyEntry: my}, nil
}

// liveEntry computes the user's current standing via a counting query
// instead of materializing a sorted list.
func (s *LeaderboardService) liveEntry(ctx context.Context, challenge domain.Challenge, userID string) (domain.RankedUser, error) {
	sub, err := s.submissions.FindUserSubmission(ctx, challenge.ID, userID)
	if err != nil {
		return domain.RankedUser{}, err
	}
	rank, err := s.LiveRank(ctx, challenge.ID, sub.CorrectCount, sub.PlayTime, sub.SubmittedAt)
	if err != nil {
		return domain.RankedUser{}, err
	}
	return rankedFromSubmission(sub, rank, challenge.Type), nil
}

// archivedEntry reads the user's frozen row, falling back to a live
// computation when the archive holds no row for them.
func (s *LeaderboardService) archivedEntry(ctx context.Context, challenge domain.Challenge, userID string) (domain.RankedUser, error) {
	entry, err := s.archive.FindEntry(ctx, challenge.ID, userID)
	if err == nil {
		return rankedFromEntry(entry, challenge.Type), nil
	}
	if !errors.Is(err, domain.ErrSubmissionNotFound) {
		return domain.RankedUser{}, err
	}
	return s.liveEntry(ctx, challenge, userID)
}

func rankedFromSubmission(sub domain.Submission, rank int, challengeType domain.ChallengeType) domain.RankedUser {
	return domain.RankedUser{
		UserID:        sub.UserID,
		DisplayName:   sub.Nickname,
		Rank:          rank,
		Score:         float64(sub.CorrectCount),
		PlayTime:      sub.PlayTime,
		ChallengeType: challengeType,
	}
}

func rankedFromEntry(entry domain.RankingEntry, challengeType domain.ChallengeType) domain.RankedUser {
	return domain.RankedUser{
		UserID:        entry.UserID,
		DisplayName:   entry.Nickname,
		Rank:          entry.Rank,
		Score:         entry.Score,
		PlayTime:      entry.PlayTime,
		ChallengeType: challengeType,
	}
}

func leaderboardKey(challengeID, userID string, expired bool) string {
	return "leaderboard:" + challengeID + ":" + stateToken(expired) + ":" + userID
}

func resultKey(challengeID, userID string, expired bool) string {
	return "result:" + challengeID + ":" + stateToken(expired) + ":" + userID
}

func stateToken(expired bool) string {
	if expired {
		return "final"
	}
	return "live"
}
