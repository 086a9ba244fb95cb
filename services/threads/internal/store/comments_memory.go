package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/comment-platform/services/threads/internal/comment"
)

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[comment.ID]comment.Comment
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments: make(map[comment.ID]comment.Comment),
	}
}

func (s *InMemoryCommentStore) Insert(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if err := ctx.Err(); err != nil {
		return comment.Comment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		p, ok := s.comments[*c.ParentID]
		if !ok || p.PageID != c.PageID {
			return comment.Comment{}, ErrParentMismatch
		}
	}
	if c.ID.IsZero() {
		id, err := comment.NewID()
		if err != nil {
			return comment.Comment{}, err
		}
		c.ID = id
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.ReportCount < 0 {
		c.ReportCount = 0
	}
	c.SetParent(nil)
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) Get(ctx context.Context, id comment.ID) (comment.Comment, error) {
	if err := ctx.Err(); err != nil {
		return comment.Comment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return comment.Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemoryCommentStore) Select(ctx context.Context, crit Criteria, w Window) ([]comment.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := s.filter(crit)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if w.Dir == Newer {
			return out[i].ID.Compare(out[j].ID) < 0
		}
		return out[i].ID.Compare(out[j].ID) > 0
	})

	if w.Offset > 0 {
		if w.Offset >= len(out) {
			return []comment.Comment{}, nil
		}
		out = out[w.Offset:]
	}
	if w.Limit >= 0 && len(out) > w.Limit {
		out = out[:w.Limit]
	}
	return out, nil
}

func (s *InMemoryCommentStore) Count(ctx context.Context, crit Criteria) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filter(crit)), nil
}

func (s *InMemoryCommentStore) Delete(ctx context.Context, id comment.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return false, nil
	}
	delete(s.comments, id)
	return true, nil
}

func (s *InMemoryCommentStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored rows.
func (s *InMemoryCommentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

// filter must be called with s.mu held.
func (s *InMemoryCommentStore) filter(crit Criteria) []comment.Comment {
	var parents map[comment.ID]struct{}
	if crit.ParentIn != nil {
		parents = make(map[comment.ID]struct{}, len(crit.ParentIn))
		for _, id := range crit.ParentIn {
			parents[id] = struct{}{}
		}
	}

	out := []comment.Comment{}
	for _, c := range s.comments {
		if crit.PageID != 0 && c.PageID != crit.PageID {
			continue
		}
		if crit.Author != "" && c.Author != crit.Author {
			continue
		}
		if crit.Keyword != "" && !strings.Contains(c.Text, crit.Keyword) {
			continue
		}
		if crit.RootsOnly && c.ParentID != nil {
			continue
		}
		if parents != nil {
			if c.ParentID == nil {
				continue
			}
			if _, ok := parents[*c.ParentID]; !ok {
				continue
			}
		}
		if !crit.Status.Match(c.Status, c.ReportCount) {
			continue
		}
		out = append(out, c)
	}
	return out
}
