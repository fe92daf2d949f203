// Package fulltext is the entry point the rest of an application uses: it
// resolves the index definition for a class, runs fuzzy searches through the
// executor (optionally behind the Redis result cache) and forwards writes to
// the index writer.
package fulltext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
)

const defaultMaxResults = 10

// SearchOptions narrows a search. Index may be blank when the class has a
// single index; Locale blank means the default locale.
type SearchOptions struct {
	Index      string         `json:"index,omitempty"`
	MaxResults int            `json:"max_results,omitempty"`
	Locale     string         `json:"locale,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

type Options struct {
	Search            executor.Options
	DefaultMaxResults int
	// Timeout bounds a single search; zero means no bound beyond ctx.
	Timeout time.Duration
	Cache   *cache.QueryCache
	Metrics *metrics.Metrics
}

type Service struct {
	catalog    *catalog.Catalog
	store      index.Store
	writer     *indexer.Writer
	searchOpts executor.Options
	defaultMax int
	timeout    time.Duration
	cache      *cache.QueryCache
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(cat *catalog.Catalog, store index.Store, opts Options) *Service {
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = defaultMaxResults
	}
	w := indexer.NewWriter(cat, store).WithMetrics(opts.Metrics)
	if opts.Cache != nil {
		w.WithInvalidator(opts.Cache)
	}
	return &Service{
		catalog:    cat,
		store:      store,
		writer:     w,
		searchOpts: opts.Search,
		defaultMax: opts.DefaultMaxResults,
		timeout:    opts.Timeout,
		cache:      opts.Cache,
		metrics:    opts.Metrics,
		logger:     slog.Default().With("component", "fulltext"),
	}
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) Writer() *indexer.Writer {
	return s.writer
}

func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

// Search runs query against the index of class chosen by opts.Index and
// returns at most opts.MaxResults documents, best first.
func (s *Service) Search(ctx context.Context, class, query string, opts SearchOptions) (*executor.SearchResult, error) {
	start := time.Now()
	result, cacheStatus, err := s.search(ctx, class, query, opts)
	s.observe(result, cacheStatus, err, time.Since(start))
	return result, err
}

func (s *Service) search(ctx context.Context, class, query string, opts SearchOptions) (*executor.SearchResult, string, error) {
	def, err := s.catalog.Select(class, opts.Index)
	if err != nil {
		return nil, "", err
	}
	name, err := s.catalog.CollectionName(def, opts.Locale)
	if err != nil {
		return nil, "", err
	}
	filter, err := catalog.SearchFilter(def, opts.Filters)
	if err != nil {
		return nil, "", err
	}
	max := opts.MaxResults
	if max == 0 {
		max = s.defaultMax
	}
	if max < 0 {
		return nil, "", apperrors.Config(apperrors.ErrInvalidInput, "max results must be > 0, got %d", max)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	exec := executor.On(s.store.Collection(name), def.Tokenizer(), s.searchOpts).WithQuery(query)
	if s.cache == nil {
		res, err := exec.Execute(ctx, max, filter)
		return res, "disabled", err
	}

	key := cache.Key{Collection: name, Query: query, Max: max, Filter: filter}
	res, hit, err := s.cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
		return exec.Execute(ctx, max, filter)
	})
	if hit {
		return res, "hit", err
	}
	return res, "miss", err
}

func (s *Service) observe(result *executor.SearchResult, cacheStatus string, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	switch {
	case err != nil:
		s.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return
	case len(result.Results) == 0:
		s.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	case cacheStatus == "hit":
		s.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	default:
		s.metrics.SearchQueriesTotal.WithLabelValues("miss").Inc()
	}
	switch cacheStatus {
	case "hit":
		s.metrics.CacheHitsTotal.Inc()
	case "miss":
		s.metrics.CacheMissesTotal.Inc()
	}
	s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	s.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	if cacheStatus != "hit" {
		s.metrics.SearchCandidates.Observe(float64(result.Candidates))
	}
}

// Results is Search without the diagnostics.
func (s *Service) Results(ctx context.Context, class, query string, opts SearchOptions) ([]ranker.Result, error) {
	res, err := s.Search(ctx, class, query, opts)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// ExtractNgrams tokenizes text with the configuration of the selected index.
func (s *Service) ExtractNgrams(class, indexName, text string, bounded bool) (ngram.Set, error) {
	def, err := s.catalog.Select(class, indexName)
	if err != nil {
		return nil, err
	}
	return def.Tokenizer().Extract(text, bounded), nil
}

// InsertNgrams writes precomputed n-grams of one document into the
// collection of the selected index and locale. Existing records of the
// document are left alone.
func (s *Service) InsertNgrams(ctx context.Context, class, indexName, locale, documentID string, ngrams ngram.Set, filterValues map[string]any) error {
	def, err := s.catalog.Select(class, indexName)
	if err != nil {
		return err
	}
	name, err := s.catalog.CollectionName(def, locale)
	if err != nil {
		return err
	}
	if err := s.writer.InsertNgrams(ctx, s.store.Collection(name), documentID, class, ngrams, filterValues); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warn("cache invalidation failed", "collection", name, "error", err)
		}
	}
	return nil
}

func (s *Service) IndexDocument(ctx context.Context, doc document.Document) error {
	return s.writer.IndexDocument(ctx, doc)
}

func (s *Service) RemoveDocument(ctx context.Context, class, documentID string) error {
	return s.writer.RemoveDocument(ctx, class, documentID)
}

func (s *Service) RemoveClass(ctx context.Context, class string) (int64, error) {
	return s.writer.RemoveClass(ctx, class)
}

func (s *Service) EnsureIndexes(ctx context.Context) error {
	return s.writer.EnsureIndexes(ctx)
}

func (s *Service) ReindexAll(ctx context.Context, docs []document.Document) (int, error) {
	return s.writer.ReindexAll(ctx, docs)
}

// Ping checks the index store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("pinging index store: %w", err)
	}
	return nil
}
