// Package executor runs a fuzzy n-gram search against one index collection:
// tokenize the query, count every n-gram, spend the candidate budget rarest
// first, and rank documents by their summed candidate scores.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/candidate"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/cursor"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

type Options struct {
	// MaxCandidateSetSize is the fetch budget in index records.
	MaxCandidateSetSize int
	// Concurrency bounds parallel count and fetch round trips.
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		MaxCandidateSetSize: candidate.DefaultMaxCandidateSetSize,
		Concurrency:         cursor.DefaultConcurrency,
	}
}

type SearchResult struct {
	Query      string          `json:"query"`
	Collection string          `json:"collection"`
	Candidates int             `json:"candidates"`
	Results    []ranker.Result `json:"results"`
	TermStats  map[string]int  `json:"term_stats"`
}

// Executor is bound to a collection, a tokenizer and, after WithQuery, a
// query string. WithQuery returns a copy, so a base executor can be shared.
type Executor struct {
	coll      index.Collection
	tokenizer *ngram.Tokenizer
	opts      Options
	query     string
	logger    *slog.Logger
}

func On(coll index.Collection, tokenizer *ngram.Tokenizer, opts Options) *Executor {
	if opts.MaxCandidateSetSize <= 0 {
		opts.MaxCandidateSetSize = candidate.DefaultMaxCandidateSetSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cursor.DefaultConcurrency
	}
	return &Executor{
		coll:      coll,
		tokenizer: tokenizer,
		opts:      opts,
		logger:    slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) WithQuery(query string) *Executor {
	next := *e
	next.query = query
	return &next
}

func (e *Executor) Query() string {
	return e.query
}

// Results returns at most max documents matching the bound query, best
// first.
func (e *Executor) Results(ctx context.Context, max int, filter index.Filter) ([]ranker.Result, error) {
	res, err := e.Execute(ctx, max, filter)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (e *Executor) Execute(ctx context.Context, max int, filter index.Filter) (*SearchResult, error) {
	if max <= 0 {
		return nil, apperrors.Config(apperrors.ErrInvalidInput, "max results must be > 0, got %d", max)
	}
	start := time.Now()
	result := &SearchResult{
		Query:      e.query,
		Collection: e.coll.Name(),
		Results:    []ranker.Result{},
		TermStats:  map[string]int{},
	}

	ngrams := e.tokenizer.Extract(e.query, true)
	if len(ngrams) == 0 {
		return result, nil
	}

	cursors, err := cursor.Build(ctx, e.coll, ngrams, filter, e.opts.Concurrency)
	if err != nil {
		return nil, err
	}
	for _, c := range cursors {
		result.TermStats[c.Entry.Text] = c.Count
	}

	candidates, err := candidate.Collect(ctx, e.coll, cursors, max, e.opts.MaxCandidateSetSize, e.opts.Concurrency)
	if err != nil {
		return nil, err
	}
	result.Candidates = len(candidates)
	result.Results = ranker.Rank(candidates, max)

	e.logger.Info("query executed",
		"collection", result.Collection,
		"query", e.query,
		"ngrams", len(ngrams),
		"candidates", len(candidates),
		"results", len(result.Results),
		"duration", time.Since(start),
	)
	return result, nil
}
