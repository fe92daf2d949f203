package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Jitter is the fraction of each delay randomised in both directions.
	Jitter float64
}

// Retry calls fn until it succeeds, MaxAttempts is reached or ctx ends.
// Delays double from InitialDelay up to MaxDelay. The last error is
// returned wrapped.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	logger := slog.Default().With("component", "retry", "operation", name)

	var err error
	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			break
		}
		wait := jittered(delay, cfg.Jitter)
		logger.Warn("attempt failed, retrying",
			"attempt", attempt, "max_attempts", cfg.MaxAttempts, "next_delay", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", name, ctx.Err(), err)
		}
		delay = min(delay*2, cfg.MaxDelay)
	}
	return fmt.Errorf("%s: %d attempts failed: %w", name, cfg.MaxAttempts, err)
}

func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	spread := float64(d) * fraction * (2*rand.Float64() - 1)
	return max(d+time.Duration(spread), 0)
}
