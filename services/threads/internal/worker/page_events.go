package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/services/threads/internal/idempotency"
	"github.com/example/comment-platform/services/threads/internal/thread"
)

const durablePageDeleted = "threads_page_deleted"

// PageDeletedEvent is published by the page service once a page is gone.
type PageDeletedEvent struct {
	EventID   string    `json:"event_id"`
	PageID    int64     `json:"page_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Purger erases every comment of a page.
type Purger interface {
	PurgePage(ctx context.Context, pageID int64, opts thread.EraseOptions) (thread.EraseReport, error)
}

type PageEventsConfig struct {
	Subject       string
	BatchSize     int
	BatchInterval time.Duration
}

// PageEvents consumes page deletion events and cascades them to comments.
type PageEvents struct {
	js     nats.JetStreamContext
	cfg    PageEventsConfig
	purger Purger
	idem   idempotency.Store
	log    *zap.Logger
}

func NewPageEvents(js nats.JetStreamContext, cfg PageEventsConfig, p Purger, idem idempotency.Store, log *zap.Logger) *PageEvents {
	if cfg.Subject == "" {
		cfg.Subject = events.SubjectPageDeleted
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PageEvents{js: js, cfg: cfg, purger: p, idem: idem, log: log.Named("page_events")}
}

// Run pulls batches until ctx is done.
func (w *PageEvents) Run(ctx context.Context) error {
	if err := events.EnsureStream(w.js, events.StreamPages, w.cfg.Subject); err != nil {
		return err
	}
	sub, err := w.js.PullSubscribe(w.cfg.Subject, durablePageDeleted)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.cfg.Subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	w.log.Info("consumer started", zap.String("subject", w.cfg.Subject), zap.Int("batch_size", w.cfg.BatchSize))
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := sub.Fetch(w.cfg.BatchSize, nats.MaxWait(w.cfg.BatchInterval))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.log.Warn("fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, m := range msgs {
			if ctx.Err() != nil {
				w.nak(m)
				continue
			}
			if err := w.Handle(ctx, m.Data); err != nil {
				w.nak(m)
				continue
			}
			if err := m.Ack(); err != nil {
				w.log.Warn("ack failed", zap.Error(err))
			}
		}
	}
}

func (w *PageEvents) nak(m *nats.Msg) {
	if err := m.Nak(); err != nil {
		w.log.Warn("nak failed", zap.Error(err))
	}
}

// Handle processes one payload. Malformed events and failed cascades are
// logged and reported as handled, since comment cleanup must not block page
// removal. It returns an error only when ctx ended mid-cascade; the message
// should then be redelivered.
func (w *PageEvents) Handle(ctx context.Context, data []byte) error {
	var ev PageDeletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		w.log.Error("invalid page deleted event", zap.Error(err))
		return nil
	}
	if ev.EventID == "" || ev.PageID <= 0 {
		w.log.Error("page deleted event missing fields",
			zap.String("event_id", ev.EventID), zap.Int64("page_id", ev.PageID))
		return nil
	}
	log := w.log.With(zap.String("event_id", ev.EventID), zap.Int64("page_id", ev.PageID))

	dup, err := w.idem.Check(ctx, ev.EventID)
	if err != nil {
		log.Warn("idempotency check failed, processing anyway", zap.Error(err))
	} else if dup {
		log.Debug("duplicate page deleted event skipped")
		return nil
	}

	rep, err := w.purger.PurgePage(ctx, ev.PageID, thread.EraseOptions{Silent: true, Policy: thread.ContinueOnError})
	if err != nil {
		log.Error("page comment cascade failed",
			zap.Int("deleted", rep.Deleted),
			zap.Int("failed", rep.Failed),
			zap.Error(err))
		// A redelivery or replay of the same event must retry the cascade,
		// so the mark is cleared even when ctx is already done.
		if ferr := w.idem.Forget(context.WithoutCancel(ctx), ev.EventID); ferr != nil {
			log.Warn("idempotency forget failed", zap.Error(ferr))
		}
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("cascade page %d interrupted: %w", ev.PageID, cerr)
		}
		return nil
	}
	log.Info("page comments cascaded", zap.Int("deleted", rep.Deleted), zap.Int("skipped", rep.Skipped))
	return nil
}
