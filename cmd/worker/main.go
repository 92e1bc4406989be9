package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/RahidMalik/lms-chat/internal/config"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/database"
	queueAdapter "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/adapter"
	repoAdapter "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/adapter"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/task"
)

// The worker consumes messaging queue tasks (currently the read-sync task).
// It shares the store configuration with the API server.
func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the worker")
	}

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store connection failed")
	}
	defer repo.Close(context.Background())

	srv, err := queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("asynq server failed")
	}

	task.RegisterSyncSeenTask(srv, repo, logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Int("concurrency", cfg.AsynqConcurrency).Msg("starting messaging worker")
	if err := srv.Run(runCtx); err != nil {
		logger.Fatal().Err(err).Msg("worker failed")
	}
	logger.Info().Msg("worker stopped")
}

func openRepository(ctx context.Context, cfg *config.Config) (repoport.Repository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case "mongo":
		client, err := database.NewMongoClient(connectCtx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		return repoAdapter.NewMongoRepository(client, cfg.MongoDB), nil
	case "postgres":
		pool, err := database.NewPgPool(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repoAdapter.NewPgRepository(pool), nil
	default:
		return repoAdapter.NewBoltRepository(cfg.BoltPath)
	}
}
