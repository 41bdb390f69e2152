package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-ranking-service/internal/domain"
	"quiz-ranking-service/internal/infra/postgres"
	pgmigrations "quiz-ranking-service/internal/infra/postgres/migrations"
	infraredis "quiz-ranking-service/internal/infra/redis"
	"quiz-ranking-service/internal/ranking"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestRankingEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()
	seedChallenge(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	cache := infraredis.NewResultCache(redisClient)
	leaderboards := ranking.NewLeaderboardService(
		postgres.NewChallengeRepository(pool),
		postgres.NewSubmissionStore(pool),
		postgres.NewArchiveRepository(db),
		cache,
		10*time.Second,
	)
	global := ranking.NewGlobalService(postgres.NewStatsStore(pool), cache, time.Minute)

	// The challenge ended an hour ago, so the first read finalizes the archive.
	view, err := leaderboards.ResolveLeaderboard(ctx, "challenge-1", "u1")
	if err != nil {
		t.Fatalf("resolve leaderboard: %v", err)
	}
	wantOrder := []string{"u3", "u2", "u1"}
	if len(view.TopEntries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", view.TopEntries)
	}
	for i, userID := range wantOrder {
		if view.TopEntries[i].UserID != userID || view.TopEntries[i].Rank != i+1 {
			t.Fatalf("position %d: expected %s at rank %d, got %+v", i, userID, i+1, view.TopEntries[i])
		}
	}
	if view.MyEntry.UserID != "u1" || view.MyEntry.Rank != 3 {
		t.Fatalf("expected u1 archived at rank 3, got %+v", view.MyEntry)
	}

	// Resolving again serves the archived rows and must agree.
	again, err := leaderboards.ResolveLeaderboard(ctx, "challenge-1", "u1")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.MyEntry.Rank != view.MyEntry.Rank {
		t.Fatalf("archived rank changed between reads: %d vs %d", view.MyEntry.Rank, again.MyEntry.Rank)
	}

	result, err := leaderboards.ChallengeResult(ctx, "challenge-1", "u2")
	if err != nil {
		t.Fatalf("challenge result: %v", err)
	}
	if result.Rank != 2 || result.FormattedTime != "25.000" {
		t.Fatalf("unexpected result for u2: %+v", result)
	}

	entries, err := global.GlobalRanking(ctx, domain.PeriodToday, 10)
	if err != nil {
		t.Fatalf("global ranking: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u1" || entries[0].Score != 8 {
		t.Fatalf("unexpected global ranking: %+v", entries)
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedChallenge(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	now := time.Now().UTC()
	endAt := now.Add(-time.Hour)

	if _, err := db.ExecContext(ctx,
		`INSERT INTO challenges (id, quiz_id, challenge_type, start_at, end_at, grace_seconds)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"challenge-1", "quiz-1", "TIME_ATTACK", now.Add(-2*time.Hour), endAt, 30); err != nil {
		t.Fatalf("insert challenge: %v", err)
	}

	subs := []struct {
		id, user, nick string
		correct        int
		playTime       float64
		offset         time.Duration
	}{
		{"s1", "u1", "Alice", 8, 30, 0},
		{"s2", "u2", "Bob", 8, 25, time.Minute},
		{"s3", "u3", "Carol", 9, 40, 2 * time.Minute},
	}
	for _, sub := range subs {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO challenge_submissions (id, challenge_id, quiz_id, user_id, nickname, correct_count, play_time, submitted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.id, "challenge-1", "quiz-1", sub.user, sub.nick, sub.correct, sub.playTime,
			now.Add(-90*time.Minute+sub.offset)); err != nil {
			t.Fatalf("insert submission %s: %v", sub.id, err)
		}
	}

	// Five solved quizzes today for u1: 40 correct out of 50 questions.
	for i := 0; i < 5; i++ {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO quiz_results (user_id, nickname, quiz_id, correct_count, total_questions, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			"u1", "Alice", fmt.Sprintf("quiz-%d", i), 8, 10, now); err != nil {
			t.Fatalf("insert quiz result: %v", err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "ranking", "POSTGRES_PASSWORD": "rankingpass", "POSTGRES_DB": "rankingdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://ranking:rankingpass@%s:%s/rankingdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
