package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/auth"
	"exam-progress-service/internal/config"
	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/infra/file"
	"exam-progress-service/internal/infra/memory"
	"exam-progress-service/internal/infra/postgres"
	infraredis "exam-progress-service/internal/infra/redis"
	"exam-progress-service/internal/logger"
	transport "exam-progress-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
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
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
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

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := bankLoader(cfg, pool)
	if err != nil {
		return err
	}
	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bank app.BankRepository
	if redisClient != nil {
		bank = infraredis.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewBankRepository(loader, bankTTL)
	}

	var progressStore app.ProgressRepository
	switch {
	case pool != nil:
		progressStore = postgres.NewProgressStore(pool)
	case redisClient != nil:
		progressStore = infraredis.NewProgressStore(redisClient)
	default:
		progressStore = memory.NewProgressStore()
	}

	var historyStore app.HistoryRepository = memory.NewHistoryStore()
	if cfg.Postgres.URL != "" {
		db := postgres.OpenBun(cfg.Postgres.URL)
		defer db.Close()
		historyStore = postgres.NewHistoryStore(db)
	}

	// Writes go to the local feed directly, or through Redis when the feed
	// is shared so that every instance fans out to its own sockets.
	feed := app.NewProgressFeed()
	var publisher app.ProgressPublisher = feed
	if redisClient != nil && cfg.Redis.Feed {
		bus := infraredis.NewFeedBus(redisClient, infraredis.DefaultFeedChannel, log)
		if err := bus.StartForwarder(ctx, func(userID string, p domain.Progress) {
			feed.Publish(ctx, userID, p)
		}); err != nil {
			return err
		}
		publisher = bus
	}

	exams := app.NewExamService(bank)
	progress := app.NewProgressService(progressStore, historyStore, publisher)
	handler := transport.NewHandler(transport.Services{
		Exams:    exams,
		Tracker:  app.NewTracker(progressStore, exams, exams).WithPublisher(publisher),
		Progress: progress,
		History:  app.NewHistoryService(historyStore),
	}, log, cfg.Exam.ExposeAnswers)
	wsHandler := transport.NewWSHandler(feed, progress, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler, wsHandler, tokens, log),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting exam service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}

// bankLoader prefers the questions table when Postgres is configured and
// falls back to the bank file.
func bankLoader(cfg config.Config, pool *pgxpool.Pool) (memory.BankLoader, error) {
	if pool != nil {
		return postgres.NewBankLoader(pool), nil
	}
	if cfg.Bank.Path == "" {
		return nil, fmt.Errorf("no question bank configured; set bank.path or postgres.url")
	}
	return file.NewBankLoader(cfg.Bank.Path), nil
}
