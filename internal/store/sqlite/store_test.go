package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	sqlitedb "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/sqlite"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), config.SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "fts.db"),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, c index.Collection) {
	t.Helper()
	ctx := context.Background()
	records := []index.Record{
		{Class: "Artist", DocumentID: "1", Ngram: "cat", Score: 0.5},
		{Class: "Artist", DocumentID: "2", Ngram: "cat", Score: 2.0, FilterValues: map[string]any{
			"genre": "rock", "tags": []any{"live", "loud"}, "year": 1999, "active": true,
		}},
		{Class: "Album", DocumentID: "3", Ngram: "cat", Score: 1.0, FilterValues: map[string]any{
			"genre": "pop", "tags": []any{"live"},
		}},
		{Class: "Artist", DocumentID: "1", Ngram: "dog", Score: 1.5},
	}
	for _, r := range records {
		require.NoError(t, c.InsertOne(ctx, r))
	}
}

func TestCollection_CountAndFind(t *testing.T) {
	ctx := context.Background()
	c := newStore(t).Collection("fts_index_artist_0")
	seed(t, c)

	n, err := c.Count(ctx, index.ForNgram("cat", index.Filter{}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.Count(ctx, index.ForNgram("cat", index.Filter{ClassIn: []string{"Artist"}}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := c.Find(ctx, index.ForNgram("cat", index.Filter{}), index.ByScoreDesc(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(recs))
	assert.InDelta(t, 2.0, recs[0].Score, 1e-12)
	assert.Equal(t, "rock", recs[0].FilterValues["genre"])
	assert.Equal(t, []any{"live", "loud"}, recs[0].FilterValues["tags"])
}

func TestCollection_FilterConditions(t *testing.T) {
	ctx := context.Background()
	c := newStore(t).Collection("artists")
	seed(t, c)

	tests := []struct {
		name string
		cond index.Condition
		want []string
	}{
		{"in scalar", index.Condition{Field: "genre", Op: index.OpIn, Values: []any{"rock", "jazz"}}, []string{"2"}},
		{"in array element", index.Condition{Field: "tags", Op: index.OpIn, Values: []any{"live"}}, []string{"2", "3"}},
		{"all array", index.Condition{Field: "tags", Op: index.OpAll, Values: []any{"live", "loud"}}, []string{"2"}},
		{"all scalar", index.Condition{Field: "genre", Op: index.OpAll, Values: []any{"pop"}}, []string{"3"}},
		{"number", index.Condition{Field: "year", Op: index.OpIn, Values: []any{1999}}, []string{"2"}},
		{"bool", index.Condition{Field: "active", Op: index.OpAll, Values: []any{true}}, []string{"2"}},
		{"missing key", index.Condition{Field: "label", Op: index.OpIn, Values: []any{"x"}}, []string{}},
		{"no operands", index.Condition{Field: "genre", Op: index.OpIn}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := index.ForNgram("cat", index.Filter{Conditions: []index.Condition{tt.cond}})
			recs, err := c.Find(ctx, q, index.ByScoreDesc(0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(recs))
		})
	}
}

func TestCollection_UnknownOperator(t *testing.T) {
	c := newStore(t).Collection("artists")
	q := index.ForNgram("cat", index.Filter{Conditions: []index.Condition{
		{Field: "genre", Op: "near", Values: []any{"rock"}},
	}})
	_, err := c.Count(context.Background(), q)
	require.Error(t, err)
}

func TestCollection_DeleteMany(t *testing.T) {
	ctx := context.Background()
	c := newStore(t).Collection("artists")
	seed(t, c)

	deleted, err := c.DeleteMany(ctx, index.ForDocument("1"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	deleted, err = c.DeleteMany(ctx, index.ForClass("Album"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	n, err := c.Count(ctx, index.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollection_InsertManyAndIndexes(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := s.Collection("fts_index_artist_0_en")

	require.NoError(t, c.CreateIndex(ctx, index.FTSIndexSpec([]string{"genre"})))
	require.NoError(t, c.CreateIndex(ctx, index.DocumentIDIndexSpec()))
	require.NoError(t, c.CreateIndex(ctx, index.FTSIndexSpec([]string{"genre"})), "index creation is idempotent")

	batch, ok := c.(index.BatchInserter)
	require.True(t, ok)
	require.NoError(t, batch.InsertMany(ctx, []index.Record{
		{Class: "Artist", DocumentID: "9", Ngram: "abc", Score: 1},
		{Class: "Artist", DocumentID: "9", Ngram: "bcd", Score: 1},
	}))

	n, err := c.Count(ctx, index.ForDocument("9"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var indexes int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = 'fts_index_artist_0_en'`).Scan(&indexes))
	assert.Equal(t, 2, indexes)
}

func TestCollection_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newStore(t).Collection("artists")

	_, err := c.Count(ctx, index.ForNgram("cat", index.Filter{}))
	assert.ErrorIs(t, err, context.Canceled)
}

func ids(recs []index.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.DocumentID)
	}
	return out
}

func TestCollection_DeleteManyRefusesUnrestrictedQuery(t *testing.T) {
	ctx := context.Background()
	c := newStore(t).Collection("artists")
	seed(t, c)

	for _, q := range []index.Query{{}, index.ForDocument(""), index.ForClass("")} {
		deleted, err := c.DeleteMany(ctx, q)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Zero(t, deleted)
	}

	n, err := c.Count(ctx, index.Query{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
