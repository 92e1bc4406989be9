package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	v1 "github.com/RahidMalik/lms-chat/cmd/api/router/v1"
	"github.com/RahidMalik/lms-chat/internal/config"
	cacheAdapter "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/adapter"
	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/database"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/metrics"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/middleware"
	queueAdapter "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/adapter"
	queueport "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/realtime"
	repoAdapter "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/adapter"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store connection failed")
	}
	defer repo.Close(context.Background())
	logger.Info().Str("driver", cfg.StoreDriver).Msg("connected to store")

	var cache cacheport.Cache
	var queue queueport.Client
	if cfg.RedisURL != "" {
		cache, err = cacheAdapter.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer cache.Close()

		queue, err = queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("asynq client failed")
		}
		defer queue.Close()
		logger.Info().Msg("connected to redis")
	}

	hub := realtime.NewHub()
	defer hub.Close()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Logger(logger))
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1.RegisterRoutes(r, cfg.JWTSecret, repo, cache, queue, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting messaging server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// openRepository wires the configured persistence adapter and prepares its
// schema or indexes.
func openRepository(ctx context.Context, cfg *config.Config) (repoport.Repository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case "mongo":
		client, err := database.NewMongoClient(connectCtx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		repo := repoAdapter.NewMongoRepository(client, cfg.MongoDB)
		if err := repo.EnsureIndexes(connectCtx); err != nil {
			return nil, err
		}
		return repo, nil

	case "postgres":
		pool, err := database.NewPgPool(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := repoAdapter.NewPgRepository(pool)
		if err := repo.EnsureSchema(connectCtx); err != nil {
			return nil, err
		}
		return repo, nil

	case "bolt":
		return repoAdapter.NewBoltRepository(cfg.BoltPath)

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
