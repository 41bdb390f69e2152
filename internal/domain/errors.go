package domain

import "errors"

var (
	// ErrChallengeNotFound is returned when a challenge ID does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrSubmissionNotFound is returned when a user has no submission for a challenge.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrChallengeClosed indicates a submit arrived after the time limit plus grace period.
	ErrChallengeClosed = errors.New("challenge is closed for submissions")
	// ErrInvalidPeriod indicates an unknown global-ranking period token.
	ErrInvalidPeriod = errors.New("invalid ranking period")
)
