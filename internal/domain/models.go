package domain

import "time"

// ChallengeType distinguishes the two competitive challenge modes.
type ChallengeType string

const (
	ChallengeTimeAttack ChallengeType = "TIME_ATTACK"
	ChallengeSurvival   ChallengeType = "SURVIVAL"
)

// Period selects the window for the global ranking.
type Period string

const (
	PeriodToday     Period = "TODAY"
	PeriodYesterday Period = "YESTERDAY"
	PeriodWeek      Period = "WEEK"
)

// Challenge is a time-windowed competitive instance of a quiz.
// A nil EndAt means the challenge never expires on its own.
type Challenge struct {
	ID           string
	QuizID       string
	Type         ChallengeType
	StartAt      time.Time
	EndAt        *time.Time
	GraceSeconds int
}

// Expired reports whether now is at or past the challenge end time.
func (c Challenge) Expired(now time.Time) bool {
	return c.EndAt != nil && !now.Before(*c.EndAt)
}

// Submission is one attempt at a challenge-bound quiz. An empty UserID
// marks an anonymous attempt: it participates in live ranking but is
// never archived and never becomes "my ranking".
type Submission struct {
	ID           string
	ChallengeID  string
	QuizID       string
	UserID       string
	Nickname     string // denormalized for leaderboard display
	CorrectCount int
	PlayTime     float64 // seconds
	SubmittedAt  time.Time
}

// Anonymous reports whether the submission has no user attached.
func (s Submission) Anonymous() bool { return s.UserID == "" }

// RankingEntry is one archived leaderboard row, written exactly once per
// challenge by the snapshot finalizer and immutable afterwards.
type RankingEntry struct {
	ChallengeID string
	UserID      string
	Nickname    string
	Rank        int
	Score       float64
	PlayTime    float64
	CreatedAt   time.Time
}

// RankedUser is the transient leaderboard row handed to callers.
type RankedUser struct {
	UserID        string        `json:"userId"`
	DisplayName   string        `json:"displayName"`
	Rank          int           `json:"rank"`
	Score         float64       `json:"score"`
	PlayTime      float64       `json:"playTime"`
	ChallengeType ChallengeType `json:"challengeType,omitempty"`
}

// GuestEntry is the zero-value row shown to anonymous viewers so the
// leaderboard stays renderable without a user context.
func GuestEntry(challengeType ChallengeType) RankedUser {
	return RankedUser{DisplayName: "Guest", ChallengeType: challengeType}
}

// LeaderboardView is the resolved leaderboard for one request.
type LeaderboardView struct {
	TopEntries []RankedUser `json:"topEntries"`
	MyEntry    RankedUser   `json:"myEntry"`
}

// ChallengeResult summarizes one user's standing in a challenge.
type ChallengeResult struct {
	Rank          int           `json:"rank"`
	CorrectCount  int           `json:"correctCount"`
	PlayTime      float64       `json:"playTime"`
	FormattedTime string        `json:"formattedTime"`
	ChallengeType ChallengeType `json:"challengeType"`
}

// AggregateStat is one user's accumulated quiz statistics inside a
// global-ranking window, as returned by the stats query.
type AggregateStat struct {
	UserID          string
	Nickname        string
	ProfileImageURL string
	SolvedQuizCount int
	TotalCorrect    int
	TotalQuestions  int
}
