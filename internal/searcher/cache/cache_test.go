package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/ranker"
)

type fakeBackend struct {
	mu   sync.Mutex
	data map[string]string
	ttl  time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string]string)}
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttl = ttl
	return nil
}

func (f *fakeBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Query:      "cat",
		Collection: "animals",
		Candidates: 1,
		Results:    []ranker.Result{{DocumentID: "1", Class: "Animal", Score: 6.19}},
		TermStats:  map[string]int{"cat": 1},
	}
}

func TestGetOrCompute(t *testing.T) {
	backend := newFakeBackend()
	c := New(backend, time.Minute)
	ctx := context.Background()
	key := Key{Collection: "animals", Query: "cat", Max: 10}

	var calls int
	compute := func() (*executor.SearchResult, error) {
		calls++
		return sampleResult(), nil
	}

	first, hit, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute(ctx, Key{Collection: "animals", Query: "  CAT ", Max: 10}, compute)
	require.NoError(t, err)
	assert.True(t, hit, "case and whitespace do not change the key")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Minute, backend.ttl)

	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestGetOrCompute_ErrorIsNotCached(t *testing.T) {
	c := New(newFakeBackend(), time.Minute)
	key := Key{Collection: "animals", Query: "cat", Max: 10}
	boom := errors.New("store down")

	_, _, err := c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), key)
	assert.False(t, ok)
}

func TestGetOrCompute_SharesConcurrentMisses(t *testing.T) {
	c := New(newFakeBackend(), time.Minute)
	key := Key{Collection: "animals", Query: "cat", Max: 10}
	release := make(chan struct{})
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return sampleResult(), nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestKeysDistinguishFiltersAndMax(t *testing.T) {
	c := New(newFakeBackend(), time.Minute)
	base := Key{Collection: "animals", Query: "cat", Max: 10}
	withFilter := base
	withFilter.Filter = index.Filter{Conditions: []index.Condition{{Field: "genre", Op: index.OpIn, Values: []any{"rock"}}}}
	withMax := base
	withMax.Max = 5

	assert.NotEqual(t, c.buildKey(base), c.buildKey(withFilter))
	assert.NotEqual(t, c.buildKey(base), c.buildKey(withMax))

	reordered := index.Filter{ClassIn: []string{"B", "A"}}
	sorted := index.Filter{ClassIn: []string{"A", "B"}}
	assert.Equal(t,
		c.buildKey(Key{Collection: "x", Query: "q", Max: 1, Filter: reordered}),
		c.buildKey(Key{Collection: "x", Query: "q", Max: 1, Filter: sorted}))
}

func TestInvalidate_PerCollection(t *testing.T) {
	backend := newFakeBackend()
	c := New(backend, time.Minute)
	ctx := context.Background()
	animals := Key{Collection: "animals", Query: "cat", Max: 10}
	artists := Key{Collection: "artists", Query: "cat", Max: 10}
	c.Set(ctx, animals, sampleResult())
	c.Set(ctx, artists, sampleResult())

	require.NoError(t, c.Invalidate(ctx, "animals"))

	_, ok := c.Get(ctx, animals)
	assert.False(t, ok)
	_, ok = c.Get(ctx, artists)
	assert.True(t, ok)

	deleted, err := c.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
