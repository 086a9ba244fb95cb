package thread

import (
	"context"
	"errors"
	"testing"

	"github.com/example/comment-platform/services/threads/internal/comment"
)

func fetchPage(t *testing.T, e *Engine, pageID int64) *Query {
	t.Helper()
	q := e.NewQuery()
	q.PageID = pageID
	q.ThreadMode = false
	if err := q.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return q
}

func TestErase_RemovesRowsAndClears(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	insert(t, s, 43, nil, comment.StatusNormal)
	n := &recordingNotifier{}
	e := NewEngine(s, n, nil)

	q := fetchPage(t, e, 42)
	erased := q.Comments
	rep, err := q.Erase(context.Background(), EraseOptions{})
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	if rep.Deleted != 3 || rep.Skipped != 0 || rep.Failed != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(q.Comments) != 0 {
		t.Fatalf("expected results cleared, got %d", len(q.Comments))
	}
	for _, c := range erased {
		if c.Valid() {
			t.Fatalf("comment %s should be marked erased", c.ID)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("expected only the other page's comment left, got %d rows", s.Len())
	}
	if len(n.removed) != 3 {
		t.Fatalf("expected 3 removal notifications, got %d", len(n.removed))
	}
}

func TestErase_SilentSkipsNotifier(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	n := &recordingNotifier{}
	e := NewEngine(s, n, nil)

	q := fetchPage(t, e, 42)
	if _, err := q.Erase(context.Background(), EraseOptions{Silent: true}); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if len(n.removed) != 0 {
		t.Fatalf("expected no notifications, got %d", len(n.removed))
	}

	// The option is per call: the next cascade notifies again.
	chain(t, s, comment.StatusNormal)
	q = fetchPage(t, e, 42)
	if _, err := q.Erase(context.Background(), EraseOptions{}); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if len(n.removed) != 3 {
		t.Fatalf("expected 3 notifications after a silent cascade, got %d", len(n.removed))
	}
}

func TestErase_EmptyIsNoop(t *testing.T) {
	s := newRecordingStore()
	n := &recordingNotifier{}
	e := NewEngine(s, n, nil)

	q := e.NewQuery()
	rep, err := q.Erase(context.Background(), EraseOptions{})
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	if rep != (EraseReport{}) {
		t.Fatalf("expected empty report, got %+v", rep)
	}
	if s.deletes != 0 || len(n.removed) != 0 {
		t.Fatalf("expected no writes, got %d deletes %d notifications", s.deletes, len(n.removed))
	}
}

func TestErase_TwiceIsIdempotent(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	e := NewEngine(s, nil, nil)

	q := fetchPage(t, e, 42)
	comments := q.Comments
	if _, err := e.Erase(context.Background(), comments, EraseOptions{}); err != nil {
		t.Fatalf("first erase: %v", err)
	}
	deletes := s.deletes

	rep, err := e.Erase(context.Background(), comments, EraseOptions{})
	if err != nil {
		t.Fatalf("second erase: %v", err)
	}
	if s.deletes != deletes {
		t.Fatalf("expected no further deletes, got %d more", s.deletes-deletes)
	}
	if rep.Deleted != 0 || rep.Skipped != 3 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestErase_RowAlreadyGoneIsSkipped(t *testing.T) {
	s := newRecordingStore()
	a, _, _ := chain(t, s, comment.StatusNormal)
	n := &recordingNotifier{}
	e := NewEngine(s, n, nil)

	q := fetchPage(t, e, 42)
	if _, err := s.InMemoryCommentStore.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rep, err := q.Erase(context.Background(), EraseOptions{})
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	if rep.Deleted != 2 || rep.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(n.removed) != 2 {
		t.Fatalf("expected notifications only for deleted rows, got %d", len(n.removed))
	}
}

func TestErase_AbortOnError(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	e := NewEngine(s, nil, nil)

	q := fetchPage(t, e, 42)
	// newest first: C, B, A
	s.failOn[q.Comments[1].ID] = true

	rep, err := q.Erase(context.Background(), EraseOptions{Policy: AbortOnError})
	if err == nil {
		t.Fatal("expected error")
	}
	if rep.Deleted != 1 || rep.Failed != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if s.Len() != 2 {
		t.Fatalf("expected cascade to stop with 2 rows left, got %d", s.Len())
	}
	if len(q.Comments) != 0 {
		t.Fatal("expected results cleared after a failed erase")
	}
}

func TestErase_ContinueOnError(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	e := NewEngine(s, nil, nil)

	q := fetchPage(t, e, 42)
	failing := q.Comments[1]
	s.failOn[failing.ID] = true

	rep, err := q.Erase(context.Background(), EraseOptions{Policy: ContinueOnError})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if rep.Deleted != 2 || rep.Failed != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if s.Len() != 1 {
		t.Fatalf("expected only the failing row left, got %d", s.Len())
	}
	if !failing.Valid() {
		t.Fatal("a comment whose delete failed must stay valid")
	}
}

func TestErase_NotifierFailureDoesNotFailCascade(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	n := &recordingNotifier{err: errors.New("broker down")}
	e := NewEngine(s, n, nil)

	q := fetchPage(t, e, 42)
	rep, err := q.Erase(context.Background(), EraseOptions{})
	if err != nil {
		t.Fatalf("expected notifier errors to be swallowed, got %v", err)
	}
	if rep.Deleted != 3 {
		t.Fatalf("expected 3 deletes, got %+v", rep)
	}
}

func TestPurgePage(t *testing.T) {
	s := newRecordingStore()
	chain(t, s, comment.StatusNormal)
	insert(t, s, 43, nil, comment.StatusNormal)
	e := NewEngine(s, nil, nil)

	rep, err := e.PurgePage(context.Background(), 42, EraseOptions{Silent: true, Policy: ContinueOnError})
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if rep.Deleted != 3 {
		t.Fatalf("expected 3 deletes, got %+v", rep)
	}
	if s.Len() != 1 {
		t.Fatalf("expected other page untouched, got %d rows", s.Len())
	}

	if _, err := e.PurgePage(context.Background(), 0, EraseOptions{}); err == nil {
		t.Fatal("expected page id 0 to be rejected")
	}
}
