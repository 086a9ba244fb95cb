package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/comment-platform/internal/platform/db"
)

// processedEventsDDL matches the comments schema so the store also works
// when comments live in another backend.
const processedEventsDDL = `CREATE TABLE IF NOT EXISTS processed_events (
    event_id   TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type postgresStore struct {
	dsn string
	ttl time.Duration

	mu   sync.Mutex
	pool *pgxpool.Pool
}

func newPostgresStore(dsn string, ttl time.Duration) *postgresStore {
	return &postgresStore{dsn: dsn, ttl: ttl}
}

func (s *postgresStore) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return s.pool, nil
	}
	pool, err := db.OpenWith(ctx, s.dsn, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, processedEventsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure processed_events: %w", err)
	}
	s.pool = pool
	return pool, nil
}

// Check inserts the event id; an existing row younger than the TTL is a
// duplicate, an expired one is refreshed and treated as new.
func (s *postgresStore) Check(ctx context.Context, eventID string) (bool, error) {
	pool, err := s.ensurePool(ctx)
	if err != nil {
		return false, err
	}

	const q = `INSERT INTO processed_events (event_id, created_at)
	           VALUES ($1, now())
	           ON CONFLICT (event_id) DO UPDATE SET created_at = now()
	           WHERE processed_events.created_at < now() - $2::interval`

	tag, err := pool.Exec(ctx, q, eventID, s.ttl)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}

func (s *postgresStore) Forget(ctx context.Context, eventID string) error {
	pool, err := s.ensurePool(ctx)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `DELETE FROM processed_events WHERE event_id = $1`, eventID)
	return err
}
