package thread

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/comment-platform/services/threads/internal/comment"
	"github.com/example/comment-platform/services/threads/internal/store"
)

// ErasePolicy decides what happens when one delete of a cascade fails.
type ErasePolicy int

const (
	// AbortOnError stops at the first failing delete.
	AbortOnError ErasePolicy = iota
	// ContinueOnError attempts every delete and joins the failures.
	ContinueOnError
)

func (p ErasePolicy) String() string {
	if p == ContinueOnError {
		return "continue"
	}
	return "abort"
}

// EraseOptions configures one Erase call.
type EraseOptions struct {
	// Silent suppresses removal notifications for this call only.
	Silent bool
	Policy ErasePolicy
}

// EraseReport counts the outcome of an Erase call.
type EraseReport struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Erase deletes every comment of the last Fetch and clears the results,
// whether or not a delete failed.
func (q *Query) Erase(ctx context.Context, opts EraseOptions) (EraseReport, error) {
	rep, err := q.engine.Erase(ctx, q.Comments, opts)
	q.Comments = []*comment.Comment{}
	return rep, err
}

// Erase deletes the stored row of each still valid comment and marks it erased.
// Comments already erased, or whose row is gone, are skipped.
func (e *Engine) Erase(ctx context.Context, comments []*comment.Comment, opts EraseOptions) (EraseReport, error) {
	var (
		rep  EraseReport
		errs []error
	)
	for _, c := range comments {
		if c == nil || !c.Valid() {
			rep.Skipped++
			continue
		}
		ok, err := e.store.Delete(ctx, c.ID)
		if err != nil {
			rep.Failed++
			err = fmt.Errorf("delete comment %s: %w", c.ID, err)
			if opts.Policy == AbortOnError {
				return rep, err
			}
			errs = append(errs, err)
			continue
		}
		c.MarkErased()
		if !ok {
			rep.Skipped++
			continue
		}
		rep.Deleted++
		if opts.Silent {
			continue
		}
		if err := e.notifier.CommentRemoved(ctx, *c); err != nil {
			e.log.Warn("comment removal notification failed",
				zap.String("comment_id", c.ID.String()),
				zap.Int64("page_id", c.PageID),
				zap.Error(err))
		}
	}
	return rep, errors.Join(errs...)
}

// PurgePage erases every comment stored for pageID.
func (e *Engine) PurgePage(ctx context.Context, pageID int64, opts EraseOptions) (EraseReport, error) {
	if pageID == 0 {
		return EraseReport{}, errors.New("purge page: page id is required")
	}
	q := e.NewQuery()
	q.PageID = pageID
	q.Limit = store.NoLimit
	q.ThreadMode = false
	if err := q.Fetch(ctx); err != nil {
		return EraseReport{}, fmt.Errorf("purge page %d: %w", pageID, err)
	}
	rep, err := q.Erase(ctx, opts)
	if err != nil {
		return rep, fmt.Errorf("purge page %d: %w", pageID, err)
	}
	e.log.Info("page comments purged",
		zap.Int64("page_id", pageID),
		zap.Int("deleted", rep.Deleted),
		zap.Int("skipped", rep.Skipped),
		zap.Bool("silent", opts.Silent),
		zap.Stringer("policy", opts.Policy))
	return rep, nil
}
