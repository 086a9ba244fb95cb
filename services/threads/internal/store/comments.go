package store

import (
	"context"
	"errors"

	"github.com/example/comment-platform/services/threads/internal/comment"
)

// Direction is the sort order over comment IDs.
type Direction int

const (
	// Older lists the newest comments first (descending id).
	Older Direction = iota
	// Newer lists the oldest comments first (ascending id).
	Newer
)

func (d Direction) String() string {
	if d == Newer {
		return "newer"
	}
	return "older"
}

// NoLimit disables the row limit of a Window.
const NoLimit = -1

// Criteria are the row predicates shared by Select and Count.
type Criteria struct {
	PageID    int64 // 0 matches every page
	Author    string
	Keyword   string
	Status    comment.StatusFilter
	RootsOnly bool
	// ParentIn restricts rows to direct children of these ids when non-nil.
	ParentIn []comment.ID
}

// Window orders and paginates a Select.
type Window struct {
	Dir    Direction
	Offset int
	Limit  int
}

// Unbounded is a window without offset or limit.
func Unbounded(dir Direction) Window {
	return Window{Dir: dir, Limit: NoLimit}
}

// CommentStore defines the contract for comment persistence.
type CommentStore interface {
	Select(ctx context.Context, c Criteria, w Window) ([]comment.Comment, error)
	Count(ctx context.Context, c Criteria) (int, error)
	Get(ctx context.Context, id comment.ID) (comment.Comment, error)
	Insert(ctx context.Context, c comment.Comment) (comment.Comment, error)
	// Delete removes the row. It reports false when no row matched.
	Delete(ctx context.Context, id comment.ID) (bool, error)
	Ping(ctx context.Context) error
}

// Sentinel errors
var (
	ErrNotFound           = errors.New("comment not found")
	ErrParentMismatch     = errors.New("parent comment missing or on another page")
	ErrUnsupportedBackend = errors.New("comment store backend not supported")
)
