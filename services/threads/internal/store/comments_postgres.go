package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/comment-platform/services/threads/internal/comment"
)

//go:embed schema.sql
var schemaSQL string

const commentColumns = `id, page_id, parent_id, username, text, status, report, created_at`

// PostgresCommentStore persists comments in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

// EnsureSchema creates the comments and processed_events tables if missing.
func (s *PostgresCommentStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresCommentStore) Insert(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if c.ID.IsZero() {
		id, err := comment.NewID()
		if err != nil {
			return comment.Comment{}, err
		}
		c.ID = id
	}
	if c.ReportCount < 0 {
		c.ReportCount = 0
	}

	var parent []byte
	if c.ParentID != nil {
		parent = c.ParentID.Bytes()
	}

	// The parent must already exist on the same page.
	const q = `INSERT INTO comments (id, page_id, parent_id, username, text, status, report)
	           SELECT $1::bytea, $2::bigint, $3::bytea, $4::text, $5::text, $6::smallint, $7::integer
	           WHERE $3::bytea IS NULL
	              OR EXISTS (SELECT 1 FROM comments p WHERE p.id = $3 AND p.page_id = $2)
	           RETURNING ` + commentColumns
	row := s.pool.QueryRow(ctx, q, c.ID.Bytes(), c.PageID, parent, c.Author, c.Text, int16(c.Status), c.ReportCount)
	out, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return comment.Comment{}, ErrParentMismatch
	}
	return out, err
}

func (s *PostgresCommentStore) Get(ctx context.Context, id comment.ID) (comment.Comment, error) {
	q := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	out, err := scanComment(s.pool.QueryRow(ctx, q, id.Bytes()))
	if errors.Is(err, pgx.ErrNoRows) {
		return comment.Comment{}, ErrNotFound
	}
	return out, err
}

func (s *PostgresCommentStore) Select(ctx context.Context, crit Criteria, w Window) ([]comment.Comment, error) {
	q, args := buildSelect(crit, w)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []comment.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCommentStore) Count(ctx context.Context, crit Criteria) (int, error) {
	where, args := buildWhere(crit)
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM comments`+where, args...).Scan(&n)
	return n, err
}

func (s *PostgresCommentStore) Delete(ctx context.Context, id comment.ID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id.Bytes())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresCommentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func buildSelect(crit Criteria, w Window) (string, []any) {
	where, args := buildWhere(crit)

	var b strings.Builder
	b.WriteString(`SELECT ` + commentColumns + ` FROM comments`)
	b.WriteString(where)
	if w.Dir == Newer {
		b.WriteString(` ORDER BY id ASC`)
	} else {
		b.WriteString(` ORDER BY id DESC`)
	}
	if w.Offset > 0 {
		args = append(args, w.Offset)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}
	if w.Limit >= 0 {
		args = append(args, w.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	return b.String(), args
}

// buildWhere renders crit as a WHERE clause with positional placeholders.
// It returns an empty clause when crit matches every row.
func buildWhere(crit Criteria) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if crit.PageID != 0 {
		add("page_id = $%d", crit.PageID)
	}
	if crit.Author != "" {
		add("username = $%d", crit.Author)
	}
	if crit.Keyword != "" {
		add("strpos(text, $%d) > 0", crit.Keyword)
	}
	if crit.RootsOnly {
		conds = append(conds, "parent_id IS NULL")
	}
	if crit.ParentIn != nil {
		ids := make([][]byte, len(crit.ParentIn))
		for i, id := range crit.ParentIn {
			ids[i] = id.Bytes()
		}
		add("parent_id = ANY($%d)", ids)
	}
	switch crit.Status {
	case comment.FilterNormal:
		add("status = $%d", int16(comment.StatusNormal))
	case comment.FilterReported:
		add("status = $%d", int16(comment.StatusNormal))
		conds = append(conds, "report > 0")
	case comment.FilterDeleted:
		add("status = $%d", int16(comment.StatusDeleted))
	case comment.FilterSpam:
		add("status = $%d", int16(comment.StatusSpam))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanComment(row pgx.Row) (comment.Comment, error) {
	var (
		c          comment.Comment
		id, parent []byte
		status     int16
	)
	if err := row.Scan(&id, &c.PageID, &parent, &c.Author, &c.Text, &status, &c.ReportCount, &c.CreatedAt); err != nil {
		return comment.Comment{}, err
	}
	var err error
	if c.ID, err = comment.IDFromBytes(id); err != nil {
		return comment.Comment{}, err
	}
	if parent != nil {
		pid, err := comment.IDFromBytes(parent)
		if err != nil {
			return comment.Comment{}, err
		}
		c.ParentID = &pid
	}
	c.Status = comment.Status(status)
	return c, nil
}
