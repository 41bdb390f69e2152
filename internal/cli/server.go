package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-ranking-service/internal/config"
	"quiz-ranking-service/internal/domain"
	"quiz-ranking-service/internal/infra/memory"
	"quiz-ranking-service/internal/infra/postgres"
	redisinfra "quiz-ranking-service/internal/infra/redis"
	"quiz-ranking-service/internal/ranking"
	transport "quiz-ranking-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ranking server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		challenges  ranking.ChallengeRepository
		submissions ranking.SubmissionStore
		archive     ranking.ArchiveRepository
		stats       ranking.StatsStore
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb := bun.NewDB(sqldb, pgdialect.New())
		defer bundb.Close()

		challenges = postgres.NewChallengeRepository(pool)
		submissions = postgres.NewSubmissionStore(pool)
		archive = postgres.NewArchiveRepository(bundb)
		stats = postgres.NewStatsStore(pool)
	} else {
		log.Printf("postgres not configured, serving seeded in-memory data")
		challenges, submissions, archive, stats = seedDemoStores()
	}

	var cache ranking.ResultCache
	if redisClient != nil {
		cache = redisinfra.NewResultCache(redisClient)
	} else {
		cache = memory.NewResultCache()
	}

	resultTTL := config.TTLDuration(cfg.Ranking.ResultTTL, ranking.DefaultResultTTL)
	globalTTL := config.TTLDuration(cfg.Ranking.GlobalTTL, ranking.DefaultGlobalTTL)
	liveInterval := config.TTLDuration(cfg.Ranking.LiveInterval, 3*time.Second)

	leaderboards := ranking.NewLeaderboardService(challenges, submissions, archive, cache, resultTTL)
	global := ranking.NewGlobalService(stats, cache, globalTTL)

	handler := transport.NewHandler(leaderboards, global)
	liveHandler := transport.NewLiveHandler(leaderboards, liveInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/challenge/leaderboard", handler.Leaderboard)
	mux.HandleFunc("/challenge/result", handler.ChallengeResult)
	mux.HandleFunc("/ranking/global", handler.GlobalRanking)
	mux.HandleFunc("/challenge/live", liveHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting ranking service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedDemoStores provides a small live challenge plus stats so the service
// is explorable without a database.
func seedDemoStores() (*memory.ChallengeStore, *memory.SubmissionStore, *memory.ArchiveStore, *memory.StatsStore) {
	now := time.Now()
	endAt := now.Add(30 * time.Minute)

	challengeStore := memory.NewChallengeStore()
	challengeStore.Put(domain.Challenge{
		ID:      "challenge-1",
		QuizID:  "quiz-1",
		Type:    domain.ChallengeTimeAttack,
		StartAt: now.Add(-30 * time.Minute),
		EndAt:   &endAt,
	})

	submissionStore := memory.NewSubmissionStore()
	submissionStore.Add(domain.Submission{
		ID: "sub-1", ChallengeID: "challenge-1", QuizID: "quiz-1",
		UserID: "u1", Nickname: "Alice", CorrectCount: 8, PlayTime: 30.2, SubmittedAt: now.Add(-20 * time.Minute),
	})
	submissionStore.Add(domain.Submission{
		ID: "sub-2", ChallengeID: "challenge-1", QuizID: "quiz-1",
		UserID: "u2", Nickname: "Bob", CorrectCount: 8, PlayTime: 25.8, SubmittedAt: now.Add(-15 * time.Minute),
	})
	submissionStore.Add(domain.Submission{
		ID: "sub-3", ChallengeID: "challenge-1", QuizID: "quiz-1",
		UserID: "u3", Nickname: "Carol", CorrectCount: 9, PlayTime: 40.0, SubmittedAt: now.Add(-10 * time.Minute),
	})

	statsStore := memory.NewStatsStore()
	statsStore.Add(domain.AggregateStat{
		UserID: "u1", Nickname: "Alice", SolvedQuizCount: 5, TotalCorrect: 40, TotalQuestions: 50,
	}, now)
	statsStore.Add(domain.AggregateStat{
		UserID: "u2", Nickname: "Bob", SolvedQuizCount: 3, TotalCorrect: 28, TotalQuestions: 30,
	}, now)

	return challengeStore, submissionStore, memory.NewArchiveStore(), statsStore
}
