// Package cursor turns query n-grams into store lookups annotated with how
// many index records each n-gram matches.
package cursor

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
)

// DefaultConcurrency bounds parallel count round trips when the caller
// does not.
const DefaultConcurrency = 8

// Cursor is one query n-gram, its corpus frequency and the filtered query
// fetching its records.
type Cursor struct {
	Entry ngram.Entry
	Count int
	Query index.Query
}

func (c Cursor) String() string {
	return fmt.Sprintf("cursor{ngram=%q score=%.4f count=%d}", c.Entry.Text, c.Entry.Score, c.Count)
}

// Build counts every n-gram of ngrams against coll, restricted by filter,
// running at most concurrency counts at a time. Cursors come back ordered by
// n-gram text. An empty set yields no cursors and no round trips.
func Build(ctx context.Context, coll index.Collection, ngrams ngram.Set, filter index.Filter, concurrency int) ([]Cursor, error) {
	if len(ngrams) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	entries := ngrams.Entries()
	cursors := make([]Cursor, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			q := index.ForNgram(entry.Text, filter)
			n, err := coll.Count(gctx, q)
			if err != nil {
				return fmt.Errorf("counting ngram %q: %w", entry.Text, err)
			}
			cursors[i] = Cursor{Entry: entry, Count: n, Query: q}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Default().With("component", "cursor-builder").Debug("cursors built",
		"collection", coll.Name(),
		"cursors", len(cursors),
	)
	return cursors, nil
}
