package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
)

func TestRegister_DefaultNames(t *testing.T) {
	c := New(nil)

	first, err := c.Register(Definition{Class: "Artist", Config: ngram.DefaultConfig()})
	require.NoError(t, err)
	second, err := c.Register(Definition{Class: "Artist", Config: ngram.DefaultConfig()})
	require.NoError(t, err)
	named, err := c.Register(Definition{Class: "Album", Name: "titles", Config: ngram.DefaultConfig()})
	require.NoError(t, err)

	assert.Equal(t, "fts_index_artist_0", first.Name)
	assert.Equal(t, "fts_index_artist_1", second.Name)
	assert.Equal(t, "titles", named.Name)
	assert.NotNil(t, first.Tokenizer())
	assert.Equal(t, []string{"Album", "Artist"}, c.Classes())
	assert.Len(t, c.All(), 3)
}

func TestRegister_Invalid(t *testing.T) {
	c := New(nil)
	_, err := c.Register(Definition{Class: "Artist", Name: "dup", Config: ngram.DefaultConfig()})
	require.NoError(t, err)

	tests := []struct {
		name string
		def  Definition
	}{
		{"no class", Definition{Config: ngram.DefaultConfig()}},
		{"bad config", Definition{Class: "Artist", Config: ngram.Config{}}},
		{"duplicate name", Definition{Class: "Artist", Name: "dup", Config: ngram.DefaultConfig()}},
		{"incomplete filter", Definition{Class: "Artist", Config: ngram.DefaultConfig(), Filters: []Filter{{Name: "genre"}}}},
		{"duplicate filter", Definition{Class: "Artist", Config: ngram.DefaultConfig(), Filters: []Filter{
			{Name: "genre", Evaluator: document.AttributeFilter("genre")},
			{Name: "genre", Evaluator: document.AttributeFilter("genre")},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Register(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	c := New(nil)
	_, err := c.Register(Definition{Class: "Album", Config: ngram.DefaultConfig()})
	require.NoError(t, err)
	_, err = c.Register(Definition{Class: "Artist", Name: "names", Config: ngram.DefaultConfig()})
	require.NoError(t, err)
	_, err = c.Register(Definition{Class: "Artist", Name: "bios", Config: ngram.DefaultConfig()})
	require.NoError(t, err)

	def, err := c.Select("Album", "")
	require.NoError(t, err)
	assert.Equal(t, "fts_index_album_0", def.Name)

	_, err = c.Select("Artist", "")
	assert.ErrorIs(t, err, apperrors.ErrUnspecifiedIndex)
	assert.Equal(t, 400, apperrors.HTTPStatusCode(err))

	def, err = c.Select("Artist", "bios")
	require.NoError(t, err)
	assert.Equal(t, "bios", def.Name)

	_, err = c.Select("Artist", "nope")
	assert.ErrorIs(t, err, apperrors.ErrIndexNotFound)

	_, err = c.Select("Painting", "")
	assert.ErrorIs(t, err, apperrors.ErrUnknownClass)
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))
}

func TestCollectionNames(t *testing.T) {
	localized := &Definition{Name: "titles", Localized: true}
	plain := &Definition{Name: "names"}

	multi := New([]string{"en", "de"})
	assert.Equal(t, []string{"titles_en", "titles_de"}, multi.CollectionNames(localized))
	assert.Equal(t, []string{"names"}, multi.CollectionNames(plain))

	name, err := multi.CollectionName(localized, "")
	require.NoError(t, err)
	assert.Equal(t, "titles_en", name, "blank locale is the default")
	name, err = multi.CollectionName(localized, "de")
	require.NoError(t, err)
	assert.Equal(t, "titles_de", name)
	_, err = multi.CollectionName(localized, "fr")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	single := New([]string{"en"})
	assert.Equal(t, []string{"titles"}, single.CollectionNames(localized), "one locale needs no suffix")
	assert.Equal(t, []string{""}, New(nil).Locales())
}

func TestQueryFilters(t *testing.T) {
	f, err := QueryFilters(map[string]any{
		"genre": map[string]any{"any": []any{"rock", "pop"}},
		"tags":  map[string]any{"all": []string{"live", "loud"}},
		"year":  1999,
		"label": []any{"emi", "sony"},
	})
	require.NoError(t, err)

	assert.Equal(t, []index.Condition{
		{Field: "genre", Op: index.OpIn, Values: []any{"rock", "pop"}},
		{Field: "label", Op: index.OpAll, Values: []any{"emi", "sony"}},
		{Field: "tags", Op: index.OpAll, Values: []any{"live", "loud"}},
		{Field: "year", Op: index.OpAll, Values: []any{1999}},
	}, f.Conditions)
}

func TestQueryFilters_UnknownOperator(t *testing.T) {
	_, err := QueryFilters(map[string]any{"genre": map[string]any{"near": "rock"}})
	assert.ErrorIs(t, err, apperrors.ErrUnknownFilterOperator)
	assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
}

func TestSearchFilter_TypeFilter(t *testing.T) {
	c := New(nil)
	parent, err := c.Register(Definition{Class: "Artist", Descendants: []string{"Painter", "Sculptor"}, Config: ngram.DefaultConfig()})
	require.NoError(t, err)
	leaf, err := c.Register(Definition{Class: "Album", Config: ngram.DefaultConfig()})
	require.NoError(t, err)

	f, err := SearchFilter(parent, map[string]any{"genre": "rock"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Artist", "Painter", "Sculptor"}, f.ClassIn)
	assert.Len(t, f.Conditions, 1)

	assert.True(t, TypeFilter(leaf).IsZero())
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Locales: []string{"en", "de"},
		Indexes: []config.IndexConfig{
			{Class: "Artist", Fields: []string{"name"}, Filters: []string{"genre"}, UpdateIf: "published", Ngram: ngram.DefaultConfig()},
		},
	}
	c, err := FromConfig(cfg)
	require.NoError(t, err)

	def, err := c.Select("Artist", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"genre"}, def.FilterNames())
	require.NotNil(t, def.UpdateIf)
	assert.True(t, def.UpdateIf.Allow(document.Document{Attributes: map[string]any{"published": true}}))
	assert.False(t, def.UpdateIf.Allow(document.Document{}))

	v, ok := def.Filters[0].Evaluator.Evaluate(document.Document{Attributes: map[string]any{"genre": "rock"}})
	assert.True(t, ok)
	assert.Equal(t, "rock", v)
}

func TestFromConfig_StopWordPreset(t *testing.T) {
	base := ngram.DefaultConfig()
	base.StopWords = []string{"feat"}
	cfg := &config.Config{Indexes: []config.IndexConfig{
		{Class: "Album", StopWordPreset: "english", Ngram: base},
	}}

	c, err := FromConfig(cfg)
	require.NoError(t, err)
	def, err := c.Select("Album", "")
	require.NoError(t, err)
	assert.Contains(t, def.Config.StopWords, "feat")
	assert.Contains(t, def.Config.StopWords, "the")
	assert.Equal(t, []string{"feat"}, base.StopWords)

	cfg.Indexes[0].StopWordPreset = "klingon"
	_, err = FromConfig(cfg)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
