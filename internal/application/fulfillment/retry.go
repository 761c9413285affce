package fulfillment

import (
	"context"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryConfig bounds the retries of an operation that lost an optimistic race
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelay is the first backoff interval
	BaseDelay time.Duration
}

// DefaultRetryConfig returns three attempts starting at 20ms
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.BaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = 20 * time.Millisecond
	}
	b.MaxInterval = 10 * b.InitialInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// retryOnConflict runs op until it succeeds, fails with a non-conflict error,
// or the attempts are exhausted. Only Conflict errors are retried; the last
// conflict is returned to the caller unchanged.
func retryOnConflict(ctx context.Context, cfg RetryConfig, log *zap.Logger, operation string, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if shared.IsConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, cfg.backOff(ctx), func(err error, wait time.Duration) {
		log.Warn("Retrying after concurrent update",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})
}
