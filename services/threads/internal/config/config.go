package config

import (
	"errors"
	"os"
	"strings"
	"time"

	platformcfg "github.com/example/comment-platform/internal/platform/config"
	"github.com/example/comment-platform/internal/platform/events"
)

type Config struct {
	// AppEnv is "production" or anything else; production refuses in-memory backends.
	AppEnv string
	// StoreBackend is "postgres" (default) or "memory".
	StoreBackend string
	DatabaseURL  string

	NATSURL string
	// PageEventsSubject carries page deletion events consumed by the worker.
	PageEventsSubject   string
	WorkerBatchSize     int
	WorkerBatchInterval time.Duration

	GRPCAddr  string
	JWTSecret string
	// JWTIssuer is enforced on admin tokens when set.
	JWTIssuer string

	RedisDSN       string
	IdempotencyTTL time.Duration

	// Notify publishes comments.removed events for non-silent cascades.
	Notify bool
	// NotifyCB* tune the circuit breaker in front of the publisher.
	NotifyCBFailures uint32
	NotifyCBTimeout  time.Duration

	// RateLimitRPS throttles the public list endpoint per client; 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

func Load() (Config, error) {
	cfg := Config{
		AppEnv:              platformcfg.EnvString("APP_ENV", "development"),
		StoreBackend:        strings.ToLower(platformcfg.EnvString("STORE_BACKEND", "postgres")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		NATSURL:             strings.TrimSpace(os.Getenv("NATS_URL")),
		PageEventsSubject:   platformcfg.EnvString("PAGE_EVENTS_SUBJECT", events.SubjectPageDeleted),
		WorkerBatchSize:     platformcfg.EnvInt("WORKER_BATCH_SIZE", 50),
		WorkerBatchInterval: time.Duration(platformcfg.EnvInt("WORKER_BATCH_INTERVAL_MS", 1000)) * time.Millisecond,
		GRPCAddr:            platformcfg.EnvString("GRPC_ADDR", ":9090"),
		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:           platformcfg.EnvString("JWT_ISSUER", ""),
		RedisDSN:            strings.TrimSpace(os.Getenv("REDIS_DSN")),
		IdempotencyTTL:      platformcfg.EnvDuration("IDEMPOTENCY_TTL", 72*time.Hour),
		Notify:              platformcfg.EnvBool("COMMENT_NOTIFY", true),
		NotifyCBFailures:    uint32(platformcfg.EnvInt("NOTIFY_CB_FAILURES", 5)),
		NotifyCBTimeout:     platformcfg.EnvDuration("NOTIFY_CB_TIMEOUT", 30*time.Second),
		RateLimitRPS:        platformcfg.EnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:      platformcfg.EnvInt("RATE_LIMIT_BURST", 40),
	}
	if cfg.WorkerBatchSize == 0 {
		cfg.WorkerBatchSize = 50
	}
	if cfg.WorkerBatchInterval <= 0 {
		cfg.WorkerBatchInterval = time.Second
	}
	if cfg.NotifyCBFailures == 0 {
		cfg.NotifyCBFailures = 5
	}
	if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required for the postgres store")
	}
	if cfg.IsProd() && cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required in production")
	}
	return cfg, nil
}
