package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/feedbackhub/feedback-system/internal/api"
	"github.com/feedbackhub/feedback-system/internal/core/service"
	mongodb "github.com/feedbackhub/feedback-system/internal/infrastructure/db/mongo"
	redisdb "github.com/feedbackhub/feedback-system/internal/infrastructure/db/redis"
	infrahttp "github.com/feedbackhub/feedback-system/internal/infrastructure/http"
	"github.com/feedbackhub/feedback-system/internal/infrastructure/http/handlers"
	"github.com/feedbackhub/feedback-system/internal/infrastructure/queue"
	"github.com/feedbackhub/feedback-system/internal/infrastructure/storage/s3"
	"github.com/feedbackhub/feedback-system/internal/pkg/config"
	"github.com/feedbackhub/feedback-system/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "feedback-service",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, db, err := mongodb.Connect(ctx, cfg.Mongo, "feedback-service")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() { _ = mongodb.Disconnect(client) }()
	log.Info().Str("database", cfg.Mongo.Database).Msg("MongoDB connection established")

	rdb, err := redisdb.Connect(ctx, cfg.Redis, "feedback-service")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer func() { _ = rdb.Close() }()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")

	images, err := s3.NewImageStore(s3.Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		PresignTTL:      cfg.S3.PresignTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create S3 client")
	}
	log.Info().Str("bucket", cfg.S3.Bucket).Msg("S3 client initialized")

	feedback := mongodb.NewFeedbackRepository(db)
	audit := mongodb.NewAuditRepository(db)
	if err := mongodb.EnsureIndexes(ctx, feedback, audit); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	cleanup := queue.NewDispatcher(cfg.CleanupWorkers, images, log)
	cleanup.Start(ctx)

	svc := service.NewFeedbackService(
		feedback,
		audit,
		images,
		cleanup,
		redisdb.NewIdempotencyStore(rdb, redisdb.DefaultIdempotencyTTL),
		log,
	)

	e := api.NewFeedbackRouter(api.FeedbackDeps{
		Log:     log,
		Service: svc,
		Checks: []handlers.Check{
			handlers.MongoCheck(db),
			handlers.RedisCheck(rdb),
			{Name: "s3", Ping: images.Ping},
		},
	})

	if err := infrahttp.Run(e, ":"+cfg.Port, log); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	cancel()
	cleanup.Wait()
	log.Info().Msg("server exited gracefully")
}
