package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/comment-platform/internal/platform/db"
)

// Open builds the comment store named by backend ("postgres" or "memory").
// The returned close func releases any pool it opened.
func Open(ctx context.Context, backend, dsn string, isProd bool) (CommentStore, func(), error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "postgres":
		pool, err := db.Open(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		s := NewPostgresCommentStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	case "memory":
		if isProd {
			return nil, nil, errors.New("in-memory comment store is not allowed in production")
		}
		return NewInMemoryCommentStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
