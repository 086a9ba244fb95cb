// Package thread reconstructs comment threads from storage and erases them.
//
// A Query is configured field by field, then Fetch loads either a flat slice of
// matching rows or, in thread mode, every matching root plus all of its
// descendants, one storage round-trip per tree level. Erase removes whatever the
// last Fetch returned.
package thread

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/comment-platform/services/threads/internal/comment"
	"github.com/example/comment-platform/services/threads/internal/notify"
	"github.com/example/comment-platform/services/threads/internal/store"
)

// ChildFilterPolicy decides which status filter applies below the root level.
type ChildFilterPolicy int

const (
	// ChildFilterCollapse keeps ALL as ALL and narrows every other filter to NORMAL.
	ChildFilterCollapse ChildFilterPolicy = iota
	// ChildFilterInherit applies the root filter at every level.
	ChildFilterInherit
)

func (p ChildFilterPolicy) String() string {
	if p == ChildFilterInherit {
		return "inherit"
	}
	return "collapse"
}

// Engine binds queries to a store and a removal notifier.
type Engine struct {
	store    store.CommentStore
	notifier notify.Notifier
	log      *zap.Logger
}

// NewEngine returns an Engine. A nil notifier drops notifications and a nil
// logger discards logs.
func NewEngine(s store.CommentStore, n notify.Notifier, log *zap.Logger) *Engine {
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: s, notifier: n, log: log}
}

// Query holds the options of one fetch and, afterwards, its results.
type Query struct {
	PageID      int64
	Author      string
	Keyword     string
	Dir         store.Direction
	Offset      int
	Limit       int
	ThreadMode  bool
	Filter      comment.StatusFilter
	ChildFilter ChildFilterPolicy

	// Comments is ordered roots first, then each expanded level in turn.
	Comments []*comment.Comment
	// TotalCount is the number of matching roots; only set in thread mode.
	TotalCount int

	engine *Engine
}

// NewQuery returns a query with the default options: every page, newest first,
// no pagination, thread mode, all statuses.
func (e *Engine) NewQuery() *Query {
	return &Query{
		Dir:        store.Older,
		Limit:      store.NoLimit,
		ThreadMode: true,
		Filter:     comment.FilterAll,
		engine:     e,
	}
}

func (q *Query) criteria() store.Criteria {
	return store.Criteria{
		PageID:    q.PageID,
		Author:    q.Author,
		Keyword:   q.Keyword,
		Status:    q.Filter,
		RootsOnly: q.ThreadMode,
	}
}

func (q *Query) childStatus() comment.StatusFilter {
	if q.Filter == comment.FilterAll || q.ChildFilter == ChildFilterInherit {
		return q.Filter
	}
	return comment.FilterNormal
}

// Fetch runs the query. On error the previous results are left untouched.
func (q *Query) Fetch(ctx context.Context) error {
	s := q.engine.store
	crit := q.criteria()

	rows, err := s.Select(ctx, crit, store.Window{Dir: q.Dir, Offset: q.Offset, Limit: q.Limit})
	if err != nil {
		return fmt.Errorf("select roots: %w", err)
	}
	if !q.ThreadMode {
		q.Comments = pointers(rows)
		q.TotalCount = 0
		return nil
	}

	total, err := s.Count(ctx, crit)
	if err != nil {
		return fmt.Errorf("count roots: %w", err)
	}

	arena := make(map[comment.ID]*comment.Comment, len(rows))
	out := link(arena, rows)
	frontier := ids(out)

	child := store.Criteria{PageID: q.PageID, Status: q.childStatus()}
	for depth := 1; len(frontier) > 0; depth++ {
		child.ParentIn = frontier
		rows, err := s.Select(ctx, child, store.Unbounded(q.Dir))
		if err != nil {
			return fmt.Errorf("select level %d: %w", depth, err)
		}
		level := link(arena, rows)
		q.engine.log.Debug("thread level fetched",
			zap.Int64("page_id", q.PageID),
			zap.Int("depth", depth),
			zap.Int("parents", len(frontier)),
			zap.Int("rows", len(level)))
		out = append(out, level...)
		frontier = ids(level)
	}

	q.Comments = out
	q.TotalCount = total
	return nil
}

// link registers rows in arena and resolves each parent already present there.
func link(arena map[comment.ID]*comment.Comment, rows []comment.Comment) []*comment.Comment {
	out := make([]*comment.Comment, 0, len(rows))
	for i := range rows {
		c := &rows[i]
		if c.ParentID != nil {
			c.SetParent(arena[*c.ParentID])
		}
		arena[c.ID] = c
		out = append(out, c)
	}
	return out
}

func pointers(rows []comment.Comment) []*comment.Comment {
	out := make([]*comment.Comment, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func ids(cs []*comment.Comment) []comment.ID {
	out := make([]comment.ID, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
