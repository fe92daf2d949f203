package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/resilience"
	pkgredis "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/redis"
)

// GuardedBackend puts reads and writes behind a circuit breaker so a
// failing Redis costs searches one rejected call instead of a network
// timeout. Invalidation always reaches the backend.
type GuardedBackend struct {
	backend Backend
	breaker *resilience.Breaker
}

// Guard wraps backend. Key-not-found replies never count as failures.
func Guard(backend Backend, cfg resilience.BreakerConfig) *GuardedBackend {
	cfg.IsFailure = func(err error) bool { return !pkgredis.IsNilError(err) }
	return &GuardedBackend{
		backend: backend,
		breaker: resilience.NewBreaker("query-cache", cfg),
	}
}

func (g *GuardedBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := g.breaker.Do(func() error {
		var err error
		value, err = g.backend.Get(ctx, key)
		return err
	})
	return value, err
}

func (g *GuardedBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return g.breaker.Do(func() error {
		return g.backend.Set(ctx, key, value, ttl)
	})
}

func (g *GuardedBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return g.backend.FlushByPattern(ctx, pattern)
}

func (g *GuardedBackend) State() resilience.State {
	return g.breaker.State()
}
