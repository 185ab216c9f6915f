package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/localmart/marketplace-service/internal/domain/citymatch"
)

type Config struct {
	// App
	Env string // dev / staging / prod

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Auth / security
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Infrastructure
	DatabaseURL string
	RedisURL    string
	RabbitURL   string
	RabbitQueue string
	// RabbitExchange is the topic exchange all domain events go to.
	RabbitExchange string

	// Object storage
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3UsePathStyle    bool
	CDNBaseURL        string
	PresignTTL        time.Duration

	// Search
	// SearchMaxDistance is the edit-distance budget for fuzzy city hits.
	SearchMaxDistance int

	// Rate limiting
	RLEnabled     bool
	RLIPLimit     int
	RLIPWindow    time.Duration
	RLLoginLimit  int
	RLLoginWindow time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		JWTIssuer: getEnv("JWT_ISSUER", "marketplace"),

		RabbitQueue:    getEnv("RABBIT_QUEUE", "media.process"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "marketplace.events"),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", "marketplace-media"),
		S3UsePathStyle:    getBool("S3_USE_PATH_STYLE", true),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	// required values
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing required env var: DATABASE_URL")
	}

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")

	// Rabbit: empty in dev falls back to the noop publisher; required otherwise.
	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	if cfg.Env != "dev" && cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing RABBIT_URL (required when APP_ENV != dev)")
	}

	cfg.AccessTokenTTL = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	cfg.PresignTTL = getDuration("PRESIGN_TTL", 15*time.Minute)

	cfg.SearchMaxDistance = getInt("SEARCH_MAX_DISTANCE", citymatch.DefaultMaxDistance)
	if cfg.SearchMaxDistance < 0 {
		return nil, fmt.Errorf("SEARCH_MAX_DISTANCE must be >= 0")
	}

	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLIPLimit = getInt("RL_IP_LIMIT", 100)
	cfg.RLIPWindow = getDuration("RL_IP_WINDOW", time.Minute)
	cfg.RLLoginLimit = getInt("RL_LOGIN_LIMIT", 10)
	cfg.RLLoginWindow = getDuration("RL_LOGIN_WINDOW", time.Minute)

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", time.Minute)

	return cfg, nil
}

// LoadWorker reads the subset the resize worker needs: queue, database and
// object storage. No JWT or HTTP server settings; RABBIT_URL is mandatory
// because the worker is nothing without its queue.
func LoadWorker() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "dev"),

		RabbitQueue:    getEnv("RABBIT_QUEUE", "media.process"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "marketplace.events"),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", "marketplace-media"),
		S3UsePathStyle:    getBool("S3_USE_PATH_STYLE", true),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing required env var: DATABASE_URL")
	}
	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
