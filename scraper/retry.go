package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy retries an operation with a fixed delay between attempts.
// Only transient faults (see IsTransient) are retried; anything else
// propagates immediately. The last failure propagates unchanged.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) Do(ctx context.Context, log *zap.Logger, name string, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for i := 1; i <= attempts; i++ {
		err = op()
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}

		log.Warn("attempt failed",
			zap.String("op", name),
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.Delay):
		}
	}

	return err
}
