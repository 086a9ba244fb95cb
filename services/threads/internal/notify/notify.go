// Package notify announces comment removals to interested subscribers.
package notify

import (
	"context"
	"time"

	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/services/threads/internal/comment"
)

// Notifier receives one call per erased comment.
type Notifier interface {
	CommentRemoved(ctx context.Context, c comment.Comment) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) CommentRemoved(context.Context, comment.Comment) error { return nil }

// NATSNotifier publishes removal events on comments.removed.
type NATSNotifier struct {
	pub *events.Publisher
}

func NewNATSNotifier(pub *events.Publisher) *NATSNotifier {
	return &NATSNotifier{pub: pub}
}

func (n *NATSNotifier) CommentRemoved(ctx context.Context, c comment.Comment) error {
	return n.pub.Publish(ctx, events.SubjectCommentRemoved, "comment.removed", removedProps(c, time.Now().UTC()))
}

func removedProps(c comment.Comment, at time.Time) map[string]any {
	props := map[string]any{
		"comment_id": c.ID.String(),
		"page_id":    c.PageID,
		"author":     c.Author,
		"removed_at": at,
	}
	if c.ParentID != nil {
		props["parent_id"] = c.ParentID.String()
	}
	return props
}
