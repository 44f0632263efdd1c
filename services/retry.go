package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// retryPolicy retries an operation with a linear backoff: attempt n waits n*step
type retryPolicy struct {
	attempts int
	step     time.Duration
}

// do runs fn until it succeeds, the attempts run out or ctx is done.
// Each failure is logged with the attempt number.
func (p retryPolicy) do(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		logger.Warn(op+" failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", attempts),
			zap.Error(err))

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * p.step):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}
