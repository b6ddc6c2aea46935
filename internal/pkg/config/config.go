package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DefaultPublicPaths are the gateway routes reachable without a credential.
var DefaultPublicPaths = []string{"/users/register", "/users/login"}

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth      AuthConfig
	Gateway   GatewayConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	S3        S3Config
	Bootstrap BootstrapConfig

	CleanupWorkers int `env:"CLEANUP_WORKERS, default=4"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,    default=10h"`
	Issuer    string        `env:"TOKEN_ISSUER, default=feedbackhub"`
}

type GatewayConfig struct {
	PublicPaths        []string `env:"GATEWAY_PUBLIC_PATHS"`
	UserServiceURL     string   `env:"USER_SERVICE_URL,     default=http://localhost:8081"`
	FeedbackServiceURL string   `env:"FEEDBACK_SERVICE_URL, default=http://localhost:8082"`
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI,             default=mongodb://localhost:27017"`
	Database       string        `env:"MONGO_DB,              default=feedbackhub"`
	MaxPoolSize    uint64        `env:"MONGO_MAX_POOL_SIZE,   default=50"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE,    default=10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT, default=5s"`
}

type S3Config struct {
	Bucket          string        `env:"S3_BUCKET,   default=feedback-images"`
	Region          string        `env:"S3_REGION,   default=us-east-1"`
	Endpoint        string        `env:"S3_ENDPOINT"`
	AccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`
	PresignTTL      time.Duration `env:"PRESIGN_TTL, default=15m"`
}

// BootstrapConfig names the ADMIN account ensured at user-service startup.
type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// IsDevelopment reports whether human-friendly log output should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through the given lookuper.
func LoadFrom(lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}

	cfg.Gateway.PublicPaths = trimPaths(cfg.Gateway.PublicPaths)
	if len(cfg.Gateway.PublicPaths) == 0 {
		cfg.Gateway.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.Auth.TokenTTL)
	}
	return &cfg, nil
}

func trimPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
