package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/config"
	"github.com/epicourier-team/epicourier-backend/internal/database"
	"github.com/epicourier-team/epicourier-backend/internal/server"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		// The API degrades without redis (no caching, no rate limiting).
		logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	go backfillEmbeddings(db, redisClient, cfg, logger)

	srv := server.NewServer(db, redisClient, cfg, logger)
	if err := srv.Start(cfg.Server.Host + ":" + cfg.Server.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// backfillEmbeddings fills in missing recipe embeddings at startup so newly
// seeded recipes become searchable without a separate job run.
func backfillEmbeddings(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	embedder := service.NewEmbeddingService(cfg.Embedding)
	updated, err := service.BackfillRecipeEmbeddings(ctx, db, embedder, logger)
	if err != nil {
		logger.Warn("embedding backfill failed", zap.Error(err))
		return
	}
	if updated > 0 {
		logger.Info("embedding backfill complete", zap.Int("updated", updated))
	}
	if redisClient != nil {
		if err := redisClient.Set(ctx, "embeddings:backfill:last_run", time.Now().Format(time.RFC3339), 0).Err(); err != nil {
			logger.Warn("failed to record backfill marker", zap.Error(err))
		}
	}
}
