// Package bootstrap wires a full-text service from configuration: the index
// catalog, the store, the optional Redis result cache and metrics.
package bootstrap

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/fulltext"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/observed"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/resilience"
)

type App struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Store    index.Store
	Redis    *pkgredis.Client
	Cache    *cache.QueryCache
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Service  *fulltext.Service
	Health   *health.Checker
}

// Build opens every dependency named by cfg. An unreachable Redis only
// disables caching; an unreachable store is fatal.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.WithComponent("bootstrap")
	cat, err := catalog.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var st index.Store
	err = resilience.Retry(ctx, "open store", resilience.RetryConfig{
		MaxAttempts:  cfg.Store.ConnectAttempts,
		InitialDelay: cfg.Store.ConnectBackoff,
		Jitter:       0.1,
	}, func(ctx context.Context) error {
		opened, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}
		st = opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Catalog:  cat,
		Store:    observed.Wrap(st, m),
		Registry: reg,
		Metrics:  m,
		Health:   health.NewChecker(),
	}
	app.Health.Require("store", app.Store)

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, search caching disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			app.Redis = client
			guarded := cache.Guard(client, resilience.BreakerConfig{
				FailureThreshold: cfg.Redis.BreakerThreshold,
				ResetTimeout:     cfg.Redis.BreakerReset,
				OnStateChange: func(_ string, _, to resilience.State) {
					m.CacheCircuitState.Set(float64(to))
				},
			})
			app.Cache = cache.New(guarded, cfg.Redis.CacheTTL)
			app.Health.Optional("redis", client)
			log.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	app.Service = fulltext.New(cat, app.Store, fulltext.Options{
		Search: executor.Options{
			MaxCandidateSetSize: cfg.Search.MaxCandidateSetSize,
			Concurrency:         cfg.Search.Concurrency,
		},
		DefaultMaxResults: cfg.Search.DefaultMaxResults,
		Timeout:           cfg.Search.Timeout,
		Cache:             app.Cache,
		Metrics:           m,
	})
	app.Service.Writer().WithConcurrency(cfg.Search.Concurrency)
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
