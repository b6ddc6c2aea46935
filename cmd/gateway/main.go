package main

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/feedbackhub/feedback-system/internal/api"
	"github.com/feedbackhub/feedback-system/internal/api/gateway"
	"github.com/feedbackhub/feedback-system/internal/core/credential"
	infrahttp "github.com/feedbackhub/feedback-system/internal/infrastructure/http"
	"github.com/feedbackhub/feedback-system/internal/infrastructure/http/handlers"
	"github.com/feedbackhub/feedback-system/internal/pkg/config"
	"github.com/feedbackhub/feedback-system/pkg/logger"
)

const upstreamHeaderTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load(".env")

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "gateway",
	})

	key, err := credential.NewSigningKey(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid JWT_SECRET")
	}
	codec := credential.NewCodec(key, cfg.Auth.TokenTTL, credential.WithIssuer(cfg.Auth.Issuer))
	log.Info().Str("key_fingerprint", key.Fingerprint()).Msg("signing key loaded")

	routes, err := gateway.Routes(cfg.Gateway.UserServiceURL, cfg.Gateway.FeedbackServiceURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid routing table")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = upstreamHeaderTimeout
	checkClient := &http.Client{Timeout: 2 * time.Second}

	e := api.NewGatewayRouter(api.GatewayDeps{
		Log:         log,
		Verifier:    codec,
		PublicPaths: cfg.Gateway.PublicPaths,
		Routes:      routes,
		Transport:   transport,
		Checks: []handlers.Check{
			handlers.UpstreamCheck("user-service", cfg.Gateway.UserServiceURL, checkClient),
			handlers.UpstreamCheck("feedback-service", cfg.Gateway.FeedbackServiceURL, checkClient),
		},
	})

	log.Info().Strs("public_paths", cfg.Gateway.PublicPaths).Msg("gateway configured")
	if err := infrahttp.Run(e, ":"+cfg.Port, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server exited gracefully")
}
