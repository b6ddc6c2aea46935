// @title           Feedback Platform API
// @version         1.0
// @description     Users and feedback behind an authenticating gateway.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/feedbackhub/feedback-system/internal/api"
	"github.com/feedbackhub/feedback-system/internal/core/credential"
	"github.com/feedbackhub/feedback-system/internal/core/service"
	mongodb "github.com/feedbackhub/feedback-system/internal/infrastructure/db/mongo"
	infrahttp "github.com/feedbackhub/feedback-system/internal/infrastructure/http"
	"github.com/feedbackhub/feedback-system/internal/infrastructure/http/handlers"
	"github.com/feedbackhub/feedback-system/internal/pkg/config"
	"github.com/feedbackhub/feedback-system/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "user-service",
	})

	ctx := context.Background()

	key, err := credential.NewSigningKey(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid JWT_SECRET")
	}
	codec := credential.NewCodec(key, cfg.Auth.TokenTTL, credential.WithIssuer(cfg.Auth.Issuer))
	log.Info().Str("key_fingerprint", key.Fingerprint()).Msg("signing key loaded")

	client, db, err := mongodb.Connect(ctx, cfg.Mongo, "user-service")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() { _ = mongodb.Disconnect(client) }()
	log.Info().Str("database", cfg.Mongo.Database).Msg("MongoDB connection established")

	users := mongodb.NewUserRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	svc := service.NewUserService(users, codec, log)
	if cfg.Bootstrap.AdminUsername != "" && cfg.Bootstrap.AdminPassword != "" {
		admin, err := svc.EnsureAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin")
		}
		log.Info().Str("user_id", admin.ID).Str("username", admin.Username).Msg("bootstrap admin ready")
	}

	e := api.NewUserRouter(api.UserDeps{
		Log:     log,
		Service: svc,
		Checks:  []handlers.Check{handlers.MongoCheck(db)},
	})

	if err := infrahttp.Run(e, ":"+cfg.Port, log); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("server exited gracefully")
}
