package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// perAttemptTimeout bounds a single connection attempt.
const perAttemptTimeout = 5 * time.Second

// connectWithRetry calls ping until it succeeds, waiting delay between
// attempts. It gives up after attempts tries and returns the last error.
func connectWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	attempts int,
	delay time.Duration,
	ping func(context.Context) error,
) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			if attempt > 1 {
				logger.Info("connected", "dependency", name, "attempt", attempt)
			}
			return nil
		}

		logger.Warn("connection attempt failed",
			"dependency", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s unreachable after %d attempts: %w", name, attempts, err)
}
