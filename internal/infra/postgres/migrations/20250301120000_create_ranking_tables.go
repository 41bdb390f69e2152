package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS challenges (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		challenge_type TEXT NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ,
		grace_seconds INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS challenge_submissions (
		id TEXT PRIMARY KEY,
		challenge_id TEXT NOT NULL,
		quiz_id TEXT NOT NULL,
		user_id TEXT,
		nickname TEXT NOT NULL DEFAULT '',
		correct_count INT NOT NULL,
		play_time DOUBLE PRECISION NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_challenge_submissions_challenge
		ON challenge_submissions (challenge_id, correct_count DESC, play_time ASC, submitted_at ASC)`,
	`CREATE TABLE IF NOT EXISTS challenge_rankings (
		challenge_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		nickname TEXT NOT NULL DEFAULT '',
		rank INT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		play_time DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (challenge_id, user_id),
		UNIQUE (challenge_id, rank)
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT,
		nickname TEXT NOT NULL DEFAULT '',
		profile_image_url TEXT,
		quiz_id TEXT NOT NULL,
		correct_count INT NOT NULL,
		total_questions INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quiz_results_window
		ON quiz_results (created_at, user_id)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS quiz_results`,
	`DROP TABLE IF EXISTS challenge_rankings`,
	`DROP TABLE IF EXISTS challenge_submissions`,
	`DROP TABLE IF EXISTS challenges`,
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range createStatements {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range dropStatements {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
