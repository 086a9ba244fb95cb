// Package db opens pgx connection pools.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/comment-platform/internal/platform/config"
)

// PoolOptions size a pool. Zero fields keep the defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	HealthCheck     time.Duration
}

// PoolOptionsFromEnv reads DB_MAX_CONNS, DB_MIN_CONNS, DB_MAX_IDLE and DB_HEALTH_CHECK.
func PoolOptionsFromEnv() PoolOptions {
	return PoolOptions{
		MaxConns:        int32(config.EnvInt("DB_MAX_CONNS", 10)),
		MinConns:        int32(config.EnvInt("DB_MIN_CONNS", 1)),
		MaxConnIdleTime: config.EnvDuration("DB_MAX_IDLE", 5*time.Minute),
		HealthCheck:     config.EnvDuration("DB_HEALTH_CHECK", 30*time.Second),
	}
}

func (o PoolOptions) apply(cfg *pgxpool.Config) {
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 && o.MinConns <= cfg.MaxConns {
		cfg.MinConns = o.MinConns
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.HealthCheck > 0 {
		cfg.HealthCheckPeriod = o.HealthCheck
	}
}

// Open opens a pool for dsn sized by PoolOptionsFromEnv and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return OpenWith(ctx, dsn, PoolOptionsFromEnv())
}

func OpenWith(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	opts.apply(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
