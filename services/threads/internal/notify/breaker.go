package notify

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/comment-platform/services/threads/internal/comment"
)

// BreakerConfig tunes the circuit breaker in front of a Notifier.
type BreakerConfig struct {
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// BreakerNotifier stops calling next once FailureThreshold consecutive calls fail.
type BreakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerNotifier(next Notifier, cfg BreakerConfig, log *zap.Logger) *BreakerNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "comment-notify",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &BreakerNotifier{next: next, cb: cb}
}

func (b *BreakerNotifier) CommentRemoved(ctx context.Context, c comment.Comment) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.CommentRemoved(ctx, c)
	})
	return err
}

// State reports the breaker state, mainly for tests and diagnostics.
func (b *BreakerNotifier) State() gobreaker.State {
	return b.cb.State()
}
