// Package cache keeps executed search results in Redis, keyed per index
// collection so that writes to one collection only evict its own entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/resilience"
)

const keyPrefix = "fts:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one search.
type Key struct {
	Collection string
	Query      string
	Max        int
	Filter     index.Filter
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, key Key) (*executor.SearchResult, bool) {
	k := c.buildKey(key)
	data, err := c.backend.Get(ctx, k)
	if err != nil {
		switch {
		case pkgredis.IsNilError(err):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache bypassed", "key", k)
		default:
			c.logger.Error("cache get failed", "key", k, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", key.Query, "key", k)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, result *executor.SearchResult) {
	k := c.buildKey(key)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.backend.Set(ctx, k, data, c.ttl); err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes and stores
// it. Concurrent misses for the same key share one computation. The bool
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	k := c.buildKey(key)
	val, err, _ := c.group.Do(k, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops the cached results of one collection.
func (c *QueryCache) Invalidate(ctx context.Context, collection string) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+collection+":*")
	if err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", collection, err)
	}
	c.logger.Info("cache invalidate", "collection", collection, "keys_deleted", deleted)
	return nil
}

// InvalidateAll drops every cached result.
func (c *QueryCache) InvalidateAll(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(key Key) string {
	raw := fmt.Sprintf("%s|max=%d|%s", normalizeQuery(key.Query), key.Max, normalizeFilter(key.Filter))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, key.Collection, hash[:16])
}

// normalizeQuery folds case and whitespace; the tokenizer ignores both.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func normalizeFilter(f index.Filter) string {
	classes := append([]string(nil), f.ClassIn...)
	sort.Strings(classes)
	conds := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		values, _ := json.Marshal(c.Values)
		conds = append(conds, fmt.Sprintf("%s:%s:%s", c.Field, c.Op, values))
	}
	sort.Strings(conds)
	return "class=" + strings.Join(classes, ",") + "|" + strings.Join(conds, ";")
}
