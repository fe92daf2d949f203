package observed

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
)

func TestWrap_NilMetrics(t *testing.T) {
	inner := memory.New()
	assert.Same(t, inner, Wrap(inner, nil))
}

func TestCollection_CountsOperations(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := Wrap(memory.New(), m)
	ctx := context.Background()
	coll := store.Collection("fts_index_artist_0")

	require.NoError(t, coll.InsertOne(ctx, index.Record{Class: "Artist", DocumentID: "1", Ngram: "pic", Score: 1}))
	batch, ok := coll.(index.BatchInserter)
	require.True(t, ok)
	require.NoError(t, batch.InsertMany(ctx, []index.Record{
		{Class: "Artist", DocumentID: "2", Ngram: "pic", Score: 1},
		{Class: "Artist", DocumentID: "2", Ngram: "ica", Score: 1},
	}))

	n, err := coll.Count(ctx, index.ForNgram("pic", index.Filter{}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := coll.Find(ctx, index.ForNgram("pic", index.Filter{}), index.ByScoreDesc(1))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	deleted, err := coll.DeleteMany(ctx, index.ForDocument("2"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	for _, op := range []string{"insert", "insert_many", "count", "find", "delete"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues(op, "ok")), op)
	}
	assert.Equal(t, 5, testutil.CollectAndCount(m.StoreOpDuration))
}

func TestCollection_CountsErrors(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	coll := Wrap(memory.New(), m).Collection("c")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := coll.Count(ctx, index.ForNgram("pic", index.Filter{}))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues("count", "error")))
}
