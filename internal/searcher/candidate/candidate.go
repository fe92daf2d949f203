// Package candidate spends a fixed fetch budget across query cursors,
// rarest first, and pairs every fetched record with its cursor.
package candidate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/cursor"
)

// DefaultMaxCandidateSetSize is the fetch budget used when none is set.
const DefaultMaxCandidateSetSize = 1000

// Candidate is one fetched record weighted by the query n-gram that found
// it.
type Candidate struct {
	DocumentID string
	Class      string
	Score      float64
}

// Mode says how a cursor's records are fetched.
type Mode int

const (
	// Unranked fetches every matching record in store order.
	Unranked Mode = iota
	// Ranked fetches the Limit best records by stored score.
	Ranked
)

func (m Mode) String() string {
	if m == Ranked {
		return "ranked"
	}
	return "unranked"
}

// Fetch is a fully determined store read for one cursor.
type Fetch struct {
	Cursor cursor.Cursor
	Mode   Mode
	Limit  int
}

// Options returns the find options for f.
func (f Fetch) Options() index.FindOptions {
	if f.Mode == Ranked {
		return index.ByScoreDesc(f.Limit)
	}
	return index.FindOptions{}
}

// Plan decides the fetch for every cursor. Cursors with no matches are
// dropped; the rest are visited rarest first (ties by n-gram text) while a
// running total of their counts is compared against budget. Once the
// remaining budget cannot hold a cursor, it is fetched ranked and limited to
// the remainder; once the budget is spent, ranked and limited to limit.
func Plan(cursors []cursor.Cursor, limit, budget int) []Fetch {
	if budget <= 0 {
		budget = DefaultMaxCandidateSetSize
	}
	live := make([]cursor.Cursor, 0, len(cursors))
	for _, c := range cursors {
		if c.Count > 0 {
			live = append(live, c)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].Count != live[j].Count {
			return live[i].Count < live[j].Count
		}
		return live[i].Entry.Text < live[j].Entry.Text
	})

	plan := make([]Fetch, 0, len(live))
	consumed := 0
	for _, c := range live {
		switch {
		case consumed >= budget:
			plan = append(plan, Fetch{Cursor: c, Mode: Ranked, Limit: limit})
		case c.Count > budget-consumed:
			plan = append(plan, Fetch{Cursor: c, Mode: Ranked, Limit: budget - consumed})
		default:
			plan = append(plan, Fetch{Cursor: c, Mode: Unranked})
		}
		// The budget tracks corpus counts, not the number of records fetched.
		consumed += c.Count
	}
	return plan
}

// Select runs the plan's fetches against coll with at most concurrency in
// flight and returns the candidates in plan order.
func Select(ctx context.Context, coll index.Collection, plan []Fetch, concurrency int) ([]Candidate, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = cursor.DefaultConcurrency
	}

	batches := make([][]Candidate, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range plan {
		g.Go(func() error {
			recs, err := coll.Find(gctx, f.Cursor.Query, f.Options())
			if err != nil {
				return fmt.Errorf("fetching ngram %q: %w", f.Cursor.Entry.Text, err)
			}
			out := make([]Candidate, len(recs))
			for j, rec := range recs {
				out[j] = Candidate{
					DocumentID: rec.DocumentID,
					Class:      rec.Class,
					Score:      rec.Score * f.Cursor.Entry.Score,
				}
			}
			batches[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	candidates := make([]Candidate, 0, total)
	for _, b := range batches {
		candidates = append(candidates, b...)
	}
	return candidates, nil
}

// Collect plans and selects in one call.
func Collect(ctx context.Context, coll index.Collection, cursors []cursor.Cursor, limit, budget, concurrency int) ([]Candidate, error) {
	plan := Plan(cursors, limit, budget)
	logger := slog.Default().With("component", "candidate-selector")
	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, f := range plan {
			logger.Debug("fetch planned",
				"ngram", f.Cursor.Entry.Text,
				"count", f.Cursor.Count,
				"mode", f.Mode.String(),
				"limit", f.Limit,
			)
		}
	}
	return Select(ctx, coll, plan, concurrency)
}
