package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/fulltext"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
)

func TestBuild_MemoryStore(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.Driver = config.DriverMemory
	cfg.Indexes = []config.IndexConfig{{Class: "Artist", Fields: []string{"name"}, Ngram: ngram.DefaultConfig()}}

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	assert.Nil(t, app.Cache)

	ctx := context.Background()
	require.NoError(t, app.Service.IndexDocument(ctx, document.Document{
		ID: "1", Class: "Artist", Fields: map[string]string{"name": "Frida Kahlo"},
	}))
	results, err := app.Service.Results(ctx, "Artist", "frida", fulltext.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "up", string(app.Health.Run(ctx).Status))

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "fts_store_operations_total")
}

func TestBuild_StoreFailureIsFatal(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.Driver = "cassandra"
	cfg.Store.ConnectAttempts = 2
	cfg.Store.ConnectBackoff = time.Millisecond

	_, err = Build(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 attempts failed")
}
