// Package observed wraps an index store so every round trip is counted and
// timed in Prometheus.
package observed

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
)

type Store struct {
	inner   index.Store
	metrics *metrics.Metrics
}

// Wrap returns inner unchanged when m is nil.
func Wrap(inner index.Store, m *metrics.Metrics) index.Store {
	if m == nil {
		return inner
	}
	return &Store{inner: inner, metrics: m}
}

func (s *Store) Collection(name string) index.Collection {
	return &Collection{inner: s.inner.Collection(name), metrics: s.metrics}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *Store) Close() error {
	return s.inner.Close()
}

// Collection records op, status and latency for each call. It always offers
// InsertMany and falls back to InsertOne when the wrapped collection has no
// batch insert.
type Collection struct {
	inner   index.Collection
	metrics *metrics.Metrics
}

func (c *Collection) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.StoreOpsTotal.WithLabelValues(op, status).Inc()
	c.metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (c *Collection) Name() string {
	return c.inner.Name()
}

func (c *Collection) Count(ctx context.Context, q index.Query) (int, error) {
	start := time.Now()
	n, err := c.inner.Count(ctx, q)
	c.observe("count", start, err)
	return n, err
}

func (c *Collection) Find(ctx context.Context, q index.Query, opts index.FindOptions) ([]index.Record, error) {
	start := time.Now()
	recs, err := c.inner.Find(ctx, q, opts)
	c.observe("find", start, err)
	return recs, err
}

func (c *Collection) InsertOne(ctx context.Context, rec index.Record) error {
	start := time.Now()
	err := c.inner.InsertOne(ctx, rec)
	c.observe("insert", start, err)
	return err
}

func (c *Collection) InsertMany(ctx context.Context, recs []index.Record) error {
	start := time.Now()
	var err error
	if batch, ok := c.inner.(index.BatchInserter); ok {
		err = batch.InsertMany(ctx, recs)
	} else {
		for _, rec := range recs {
			if err = c.inner.InsertOne(ctx, rec); err != nil {
				break
			}
		}
	}
	c.observe("insert_many", start, err)
	return err
}

func (c *Collection) DeleteMany(ctx context.Context, q index.Query) (int64, error) {
	start := time.Now()
	n, err := c.inner.DeleteMany(ctx, q)
	c.observe("delete", start, err)
	return n, err
}

func (c *Collection) CreateIndex(ctx context.Context, spec index.IndexSpec) error {
	start := time.Now()
	err := c.inner.CreateIndex(ctx, spec)
	c.observe("create_index", start, err)
	return err
}
